package archiver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArticleReferenceString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		index int
		want  string
	}{
		{1, "___1 https://mery.jp/1"},
		{12, "__12 https://mery.jp/1"},
		{123, "_123 https://mery.jp/1"},
		{1234, "1234 https://mery.jp/1"},
		{12345, "12345 https://mery.jp/1"},
	}
	for _, tc := range testCases {
		ref := ArticleReference{Index: tc.index, URL: "https://mery.jp/1"}
		assert.Equal(t, tc.want, ref.String())
	}
}
