package fieldcodec

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstore/m/domain"
)

func TestSplit_Unquoted(t *testing.T) {
	fields, warnings := Split("Paracetamol, 5 ,Acme  ,42\r\n")
	assert.Equal(t, []string{"Paracetamol", "5", "Acme", "42"}, fields)
	assert.Empty(t, warnings)
}

func TestSplit_EmptyFields(t *testing.T) {
	fields, _ := Split("a,,c,")
	assert.Equal(t, []string{"a", "", "c", ""}, fields)
}

func TestSplit_QuotedWithEscapes(t *testing.T) {
	fields, warnings := Split(`"say ""hi"", ok",2,"x,y"`)
	assert.Equal(t, []string{`say "hi", ok`, "2", "x,y"}, fields)
	assert.Empty(t, warnings)
}

func TestSplit_SkipsTextAfterClosingQuote(t *testing.T) {
	fields, _ := Split(`"1700000000"-4242,2026-01-02`)
	assert.Equal(t, []string{"1700000000", "2026-01-02"}, fields)
}

func TestSplit_UnterminatedQuoteEndsAtLineEnd(t *testing.T) {
	fields, warnings := Split(`a,"broken field`)
	assert.Equal(t, []string{"a", "broken field"}, fields)
	assert.Len(t, warnings, 1)
}

func TestSplit_QuoteInsideUnquotedFieldIsKept(t *testing.T) {
	fields, warnings := Split(`5" bandage,7`)
	assert.Equal(t, []string{`5" bandage`, "7"}, fields)
	assert.Len(t, warnings, 1)
}

func TestSplit_BlankLine(t *testing.T) {
	fields, _ := Split("   ")
	assert.Empty(t, fields)
}

func TestMedicineRoundTrip(t *testing.T) {
	records := []domain.Medicine{
		{Code: 100, Name: "Paracetamol", SupplierName: "Acme Pharma", SupplierContact: 9876543210,
			Price: decimal.RequireFromString("12.50"), Quantity: 10, Expiry: domain.ExpiryDate{Year: 2027, Month: 3, Day: 9}},
		{Code: 7, Name: `Cough "DX", syrup`, SupplierName: " Leading space", SupplierContact: 1,
			Price: decimal.Zero, Quantity: 0, Expiry: domain.ExpiryDate{Year: 2025, Month: 12, Day: 31}},
	}
	for _, rec := range records {
		line := EncodeMedicine(rec)
		got, warnings, err := DecodeMedicine(line)
		require.NoError(t, err, line)
		assert.Empty(t, warnings)
		assert.True(t, rec.Equal(got), "round trip of %q gave %+v", line, got)
	}
}

func TestEncodeMedicine_PlainFieldsAreNotQuoted(t *testing.T) {
	line := EncodeMedicine(domain.Medicine{Code: 3, Name: "Ibuprofen", SupplierName: "Zen", SupplierContact: 55,
		Price: decimal.RequireFromString("4.5"), Quantity: 2, Expiry: domain.ExpiryDate{Year: 2026, Month: 1, Day: 2}})
	assert.Equal(t, "Ibuprofen,3,Zen,55,4.50,2,2026,1,2", line)
}

func TestDecodeMedicine_Malformed(t *testing.T) {
	lines := []string{
		"Paracetamol,100,Acme,1,2.00,5,2026,1",
		"Paracetamol,abc,Acme,1,2.00,5,2026,1,1",
		"Paracetamol,100,Acme,1,-2.00,5,2026,1,1",
		"Paracetamol,100,Acme,1,2.00,-5,2026,1,1",
		",100,Acme,1,2.00,5,2026,1,1",
	}
	for _, line := range lines {
		_, _, err := DecodeMedicine(line)
		assert.True(t, errors.Is(err, domain.ErrMalformedRecord), line)
	}
}

func TestLineCode(t *testing.T) {
	code, ok := LineCode(`"Name, with comma",42,x`)
	assert.True(t, ok)
	assert.Equal(t, 42, code)

	_, ok = LineCode("only-one-field")
	assert.False(t, ok)
}

func TestSaleLineRoundTrip(t *testing.T) {
	sale := domain.SaleLine{
		InvoiceID:    "1760600000-0b7f6c1e-4a0e-4d59-9a53-1d8f7f5d2c11",
		Date:         "2026-10-16",
		Time:         "09:15:02",
		CustomerName: "O'Neil, Pat",
		MedicineCode: 100,
		MedicineName: `Syrup "Kids"`,
		Quantity:     4,
		PricePerItem: decimal.RequireFromString("2.25"),
		TotalCost:    decimal.RequireFromString("9.00"),
	}
	line := EncodeSaleLine(sale)
	assert.Equal(t, `"1760600000-0b7f6c1e-4a0e-4d59-9a53-1d8f7f5d2c11",2026-10-16,09:15:02,"O'Neil, Pat",100,"Syrup ""Kids""",4,2.25,9.00`, line)

	got, _, err := DecodeSaleLine(line)
	require.NoError(t, err)
	assert.Equal(t, sale.InvoiceID, got.InvoiceID)
	assert.Equal(t, sale.CustomerName, got.CustomerName)
	assert.Equal(t, sale.MedicineName, got.MedicineName)
	assert.Equal(t, sale.Quantity, got.Quantity)
	assert.True(t, sale.PricePerItem.Equal(got.PricePerItem))
	assert.True(t, sale.TotalCost.Equal(got.TotalCost))
}

func TestDecodeSaleLine_AcceptsUnquotedLegacyRows(t *testing.T) {
	got, _, err := DecodeSaleLine("1700000000-99,2024-01-01,10:00:00,Ravi,5,Aspirin,2,1.50,3.00,extra")
	require.NoError(t, err)
	assert.Equal(t, "1700000000-99", got.InvoiceID)
	assert.Equal(t, "Aspirin", got.MedicineName)
	assert.Equal(t, 2, got.Quantity)
}

func TestDecodeSaleLine_Malformed(t *testing.T) {
	for _, line := range []string{
		`"",2024-01-01,10:00:00,"Ravi",5,"Aspirin",2,1.50,3.00`,
		`"x",2024-01-01,10:00:00,"Ravi",0,"Aspirin",2,1.50,3.00`,
		`"x",2024-01-01,10:00:00,"Ravi",5,"Aspirin",0,1.50,3.00`,
		`"x",2024-01-01,10:00:00,"Ravi",5,"Aspirin",2`,
	} {
		_, _, err := DecodeSaleLine(line)
		assert.ErrorIs(t, err, domain.ErrMalformedRecord, line)
	}
}

func TestIsLedgerHeader(t *testing.T) {
	assert.True(t, IsLedgerHeader(LedgerHeader))
	assert.False(t, IsLedgerHeader(`"x",2024-01-01,10:00:00,"Ravi",5,"Aspirin",2,1.50,3.00`))
}
