package archiver

import "strings"

// unsafeNameChars maps characters that are not allowed (or awkward) in file
// names to full-width look-alikes. Space becomes an underscore.
var unsafeNameChars = strings.NewReplacer(
	`\`, "＼",
	"/", "／",
	":", "：",
	"*", "＊",
	"?", "？",
	`"`, "”",
	"<", "＜",
	">", "＞",
	"|", "｜",
	" ", "_",
)

// SanitizeName makes s safe to use as a single path element. The result
// contains none of the replaced characters, so applying it twice is a no-op.
func SanitizeName(s string) string {
	return unsafeNameChars.Replace(s)
}

// WriterDir names the per-writer directory after the writer's display name.
// Names made only of dots would escape or alias the storage root, so their
// dots become full-width; an empty name becomes "_".
func WriterDir(name string) string {
	dir := SanitizeName(name)
	if dir == "" {
		return "_"
	}
	if strings.Trim(dir, ".") == "" {
		return strings.Repeat("．", len(dir))
	}
	return dir
}

// ArtifactFileName builds "{date}_{title}{ext}" from sanitized parts.
func ArtifactFileName(date, title, ext string) string {
	return SanitizeName(date) + "_" + SanitizeName(title) + ext
}
