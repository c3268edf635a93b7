package beatport

import "strings"

var enharmonicReplacer = strings.NewReplacer(
	"db", "c#",
	"eb", "d#",
	"gb", "f#",
	"ab", "g#",
	"bb", "a#",
)

// NormalizeKey turns a display key such as "Eb Major" into the short sharp
// notation "D#maj". Strings that are not exactly "<note> <mode>" yield "".
func NormalizeKey(key string) string {
	parts := strings.Split(key, " ")
	if len(parts) != 2 {
		return ""
	}

	short := parts[0] + strings.ToLower(parts[1])
	if len(short) < 2 {
		return ""
	}
	short = short[:len(short)-2]

	short = enharmonicReplacer.Replace(strings.ToLower(short))
	if short == "" {
		return ""
	}
	return strings.ToUpper(short[:1]) + short[1:]
}
