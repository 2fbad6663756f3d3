package auth

// SplitURL separates "https://host:port/path" into its base and path.
// The path is "/" when the url has none.
func SplitURL(url string) (base, path string) {
	for i := 1; i < len(url); i++ {
		if url[i] == '/' && url[i-1] != ':' && url[i-1] != '/' {
			return url[:i], url[i:]
		}
	}
	return url, "/"
}
