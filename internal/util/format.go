package util

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatUGX renders a whole-shilling amount with thousands separators, e.g. "UGX 345,000".
func FormatUGX(amount int64) string {
	return amountPrinter.Sprintf("UGX %d", amount)
}
