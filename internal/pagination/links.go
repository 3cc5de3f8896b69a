package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

// PageParam is the query parameter rewritten in page links.
const PageParam = "page"

// pageURL returns u with only the page parameter set to page. Every other
// parameter keeps its raw encoding and position. A missing page parameter
// is appended.
func pageURL(u *url.URL, page int) string {
	value := PageParam + "=" + strconv.Itoa(page)
	var out []string
	replaced := false
	if u.RawQuery != "" {
		for _, part := range strings.Split(u.RawQuery, "&") {
			key := part
			if i := strings.IndexByte(part, '='); i >= 0 {
				key = part[:i]
			}
			if k, err := url.QueryUnescape(key); err == nil {
				key = k
			}
			if key == PageParam {
				if replaced {
					continue
				}
				replaced = true
				part = value
			}
			out = append(out, part)
		}
	}
	if !replaced {
		out = append(out, value)
	}

	c := *u
	c.RawQuery = strings.Join(out, "&")
	c.ForceQuery = false
	return c.String()
}
