package schema

import (
	"strconv"
	"strings"
)

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// Join appends one RFC 6901 reference token to ptr. The empty pointer is the
// document root.
func Join(ptr, token string) string {
	return ptr + "/" + pointerEscaper.Replace(token)
}

// Index appends an array index to ptr.
func Index(ptr string, i int) string {
	return ptr + "/" + strconv.Itoa(i)
}

// Display renders ptr for humans, showing the root as "/".
func Display(ptr string) string {
	if ptr == "" {
		return "/"
	}
	return ptr
}
