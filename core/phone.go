package core

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"timedock.com/timedock/utils"
)

var nonDigits = regexp.MustCompile(`\D`)

// Country-prefix shapes tried when full parsing fails. Order matters: "1"
// would otherwise swallow numbers that belong to longer prefixes.
var phonePrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^(20)(\d{9,10})$`),
	regexp.MustCompile(`^(971)(\d{9})$`),
	regexp.MustCompile(`^(966)(\d{9})$`),
	regexp.MustCompile(`^(1)(\d{10})$`),
	regexp.MustCompile(`^(44)(\d{10})$`),
}

// SplitPhone separates a raw dialed string into a country calling code and
// a national number. Parsing is attempted against real numbering metadata
// first; when the number does not validate, a prefix table covers the
// common cases, and a plain length rule decides the rest: ten digits or
// fewer is a bare national number, more than ten splits the trailing ten
// off as the national part.
func SplitPhone(raw string) (code, number *string) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return nil, nil
	}

	if num, err := phonenumbers.Parse("+"+digits, ""); err == nil && phonenumbers.IsValidNumber(num) {
		return utils.Ptr(strconv.Itoa(int(num.GetCountryCode()))),
			utils.Ptr(phonenumbers.GetNationalSignificantNumber(num))
	}

	for _, re := range phonePrefixes {
		if m := re.FindStringSubmatch(digits); m != nil {
			return utils.Ptr(m[1]), utils.Ptr(m[2])
		}
	}

	if len(digits) <= 10 {
		return nil, utils.Ptr(digits)
	}
	return utils.Ptr(digits[:len(digits)-10]), utils.Ptr(digits[len(digits)-10:])
}

// JoinPhone rebuilds a dialable string from the split parts for writing
// back to the remote record.
func JoinPhone(code, number *string) string {
	var b strings.Builder
	if code != nil && *code != "" {
		b.WriteString("+")
		b.WriteString(*code)
	}
	if number != nil {
		b.WriteString(*number)
	}
	return b.String()
}
