package mapper

import (
	"fmt"
	"math"
	"strings"
)

var (
	wordUnits = []string{"", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve"}
	wordTeens = []string{"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve"}
	wordTens  = []string{"", "", "veinte", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa"}
	wordCents = []string{"", "cien", "doscientos", "trescientos", "cuatrocientos", "quinientos", "seiscientos", "setecientos", "ochocientos", "novecientos"}
)

// amountInWords renders a monetary amount as Spanish text for the legal
// note on the document, e.g. "mil doscientos con 50/100 USD"
func amountInWords(amount float64, currency string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return strings.TrimSpace("Valor inválido " + currency)
	}

	integer := int64(amount)
	cents := int64(math.Round((amount - float64(integer)) * 100))

	text := spellNumber(integer)
	if cents > 0 {
		text = fmt.Sprintf("%s con %02d/100", text, cents)
	}

	return strings.TrimSpace(text + " " + currency)
}

func spellNumber(n int64) string {
	switch {
	case n == 0:
		return "cero"
	case n < 10:
		return wordUnits[n]
	case n < 20:
		return wordTeens[n-10]
	case n < 100:
		if n%10 == 0 {
			return wordTens[n/10]
		}
		return wordTens[n/10] + " y " + wordUnits[n%10]
	case n < 1000:
		if n%100 == 0 {
			return wordCents[n/100]
		}
		return wordCents[n/100] + " " + spellNumber(n%100)
	case n < 1_000_000:
		head := "mil"
		if n/1000 > 1 {
			head = spellNumber(n/1000) + " mil"
		}
		if n%1000 == 0 {
			return head
		}
		return head + " " + spellNumber(n%1000)
	case n < 1_000_000_000:
		head := "un millón"
		if n/1_000_000 > 1 {
			head = spellNumber(n/1_000_000) + " millones"
		}
		if n%1_000_000 == 0 {
			return head
		}
		return head + " " + spellNumber(n%1_000_000)
	}
	return "Cantidad no soportada"
}
