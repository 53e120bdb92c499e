package textutil

// PreviewLimit is the maximum length, in characters, of any denormalized preview.
const PreviewLimit = 100

const ellipsis = "..."

// Preview returns body unchanged when it fits in PreviewLimit characters,
// otherwise the first PreviewLimit-3 characters followed by "...".
func Preview(body string) string {
	runes := []rune(body)
	if len(runes) <= PreviewLimit {
		return body
	}
	return string(runes[:PreviewLimit-len(ellipsis)]) + ellipsis
}
