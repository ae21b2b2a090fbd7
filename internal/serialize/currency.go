package serialize

import (
	"fmt"
	"strconv"
	"strings"
)

// currencyFormat описывает правила отображения суммы в валюте:
// положение символа, разделители и масштаб (число знаков после запятой).
type currencyFormat struct {
	symbol       string
	symbolLeft   bool
	symbolSpace  bool
	thousandsSep string
	decimalSep   string
	exponent     int
}

var currencyFormats = map[string]currencyFormat{
	"USD": {symbol: "$", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 2},
	"GBP": {symbol: "£", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 2},
	"EUR": {symbol: "€", symbolSpace: true, thousandsSep: ".", decimalSep: ",", exponent: 2},
	"RUB": {symbol: "₽", symbolSpace: true, thousandsSep: " ", decimalSep: ",", exponent: 2},
	"UAH": {symbol: "₴", symbolSpace: true, thousandsSep: " ", decimalSep: ",", exponent: 2},
	"JPY": {symbol: "¥", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 0},
	"INR": {symbol: "₹", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 2},
	"BRL": {symbol: "R$", symbolLeft: true, symbolSpace: true, thousandsSep: ".", decimalSep: ",", exponent: 2},
	"PLN": {symbol: "zł", symbolSpace: true, thousandsSep: " ", decimalSep: ",", exponent: 2},
	"TRY": {symbol: "₺", symbolSpace: true, thousandsSep: ".", decimalSep: ",", exponent: 2},
	"CHF": {symbol: "CHF", symbolSpace: true, thousandsSep: "'", decimalSep: ".", exponent: 2},
	"SEK": {symbol: "kr", symbolSpace: true, thousandsSep: ".", decimalSep: ",", exponent: 2},
	"ILS": {symbol: "₪", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 2},
	"KZT": {symbol: "₸", symbolSpace: true, thousandsSep: " ", decimalSep: ",", exponent: 2},
	"CAD": {symbol: "CA$", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 2},
	"AUD": {symbol: "AU$", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 2},
	"CNY": {symbol: "CN¥", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 2},
	"KRW": {symbol: "₩", symbolLeft: true, thousandsSep: ",", decimalSep: ".", exponent: 0},
	"VND": {symbol: "₫", symbolSpace: true, thousandsSep: ".", decimalSep: ",", exponent: 0},
	"AED": {symbol: "AED", symbolSpace: true, thousandsSep: ",", decimalSep: ".", exponent: 2},
}

// FormatCurrency форматирует сумму в минимальных единицах валюты
// (центах, копейках) в отображаемую строку с символом валюты.
// Для неизвестной валюты возвращается "<сумма> <КОД>".
func FormatCurrency(currency string, amount int64) string {
	f, ok := currencyFormats[strings.ToUpper(currency)]
	if !ok {
		return fmt.Sprintf("%d %s", amount, strings.ToUpper(currency))
	}

	negative := amount < 0
	if negative {
		amount = -amount
	}

	scale := int64(1)
	for i := 0; i < f.exponent; i++ {
		scale *= 10
	}
	major := amount / scale
	minor := amount % scale

	number := groupThousands(strconv.FormatInt(major, 10), f.thousandsSep)
	if f.exponent > 0 {
		number += f.decimalSep + fmt.Sprintf("%0*d", f.exponent, minor)
	}
	if negative {
		number = "-" + number
	}

	space := ""
	if f.symbolSpace {
		space = " "
	}
	if f.symbolLeft {
		return f.symbol + space + number
	}
	return number + space + f.symbol
}

// groupThousands расставляет разделители групп разрядов в целой части.
func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
