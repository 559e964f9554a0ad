package chromedpbrowser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// paperSizes are in inches, width by height.
var paperSizes = map[string][2]float64{
	"A3":      {11.69, 16.54},
	"A4":      {8.27, 11.69},
	"A5":      {5.83, 8.27},
	"LETTER":  {8.5, 11},
	"LEGAL":   {8.5, 14},
	"TABLOID": {11, 17},
}

func paperSize(format string) (float64, float64, error) {
	size, ok := paperSizes[strings.ToUpper(strings.TrimSpace(format))]
	if !ok {
		return 0, 0, fmt.Errorf("unknown page format %q", format)
	}
	return size[0], size[1], nil
}

// parseLength converts a CSS-like length ("2cm", "10mm", "1in", "96px") to
// inches. A bare number is taken as inches.
func parseLength(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	units := []struct {
		suffix string
		perInc float64
	}{
		{"cm", 2.54},
		{"mm", 25.4},
		{"in", 1},
		{"px", 96},
	}
	per := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			per = u.perInc
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	return v / per, nil
}

// hideScript hides every sibling of each element matched by siblingsOf,
// then every sibling that follows the first match of following. It
// evaluates to the number of hidden elements.
func hideScript(siblingsOf []string, following string) (string, error) {
	sel, err := json.Marshal(siblingsOf)
	if err != nil {
		return "", fmt.Errorf("encode selectors: %w", err)
	}
	after, err := json.Marshal(following)
	if err != nil {
		return "", fmt.Errorf("encode selector: %w", err)
	}
	return fmt.Sprintf(`(() => {
  let hidden = 0;
  const hide = (el) => { el.style.display = 'none'; hidden++; };
  for (const sel of %s) {
    document.querySelectorAll(sel).forEach((el) => {
      if (!el.parentElement) return;
      for (const sib of el.parentElement.children) {
        if (sib !== el) hide(sib);
      }
    });
  }
  const anchor = %s ? document.querySelector(%s) : null;
  if (anchor) {
    let next = anchor.nextElementSibling;
    while (next) { hide(next); next = next.nextElementSibling; }
  }
  return hidden;
})()`, sel, after, after), nil
}

// scrollScript starts scrolling to the bottom of the document over d with
// requestAnimationFrame and returns at once. The caller's courtesy pause
// covers the animation.
func scrollScript(d time.Duration) string {
	return fmt.Sprintf(`(() => {
  const duration = %d;
  const start = window.scrollY;
  const distance = () => document.documentElement.scrollHeight - window.innerHeight - start;
  if (duration <= 0) { window.scrollTo(0, start + distance()); return true; }
  const t0 = performance.now();
  const step = (now) => {
    const p = Math.min((now - t0) / duration, 1);
    window.scrollTo(0, start + distance() * p);
    if (p < 1) { requestAnimationFrame(step); }
  };
  requestAnimationFrame(step);
  return true;
})()`, d.Milliseconds())
}
