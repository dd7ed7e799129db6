package standardbooks

import "strconv"

// Customer is a CUVc record.
type Customer struct {
	Code   string
	Name   string
	Person string
	Email  string
	Phone  string
}

func customerFromNode(n *Node) *Customer {
	return &Customer{
		Code:   n.Field("Code"),
		Name:   n.Field("Name"),
		Person: n.Field("Person"),
		Email:  n.Field("Email"),
		Phone:  n.Field("Phone"),
	}
}

// Invoice is the slice of an IVVc record this service cares about: the
// serial number that identifies the invoice on subsequent updates and the
// customer code the system attached to it.
type Invoice struct {
	SerNr    string
	CustCode string
}

func invoiceFromNode(n *Node) *Invoice {
	return &Invoice{
		SerNr:    n.Field("SerNr"),
		CustCode: n.Field("CustCode"),
	}
}

// Article is an INVc record. Notes carries the free-text Math2 field, which
// the shop surfaces as an availability note.
type Article struct {
	Code    string
	Name    string
	VATCode string
	Notes   string
}

func articleFromNode(n *Node) *Article {
	return &Article{
		Code:    n.Field("Code"),
		Name:    n.Field("Name"),
		VATCode: n.Field("VATCode"),
		Notes:   n.Field("Math2"),
	}
}

// ArticleStock is an ItemStatusVc record for one article in one warehouse.
type ArticleStock struct {
	Code     string
	Location string
	InStock  float64
}

func articleStockFromNode(n *Node) *ArticleStock {
	instock, _ := strconv.ParseFloat(n.Field("Instock"), 64)
	return &ArticleStock{
		Code:     n.Field("Code"),
		Location: n.Field("Location"),
		InStock:  instock,
	}
}

// TaxRow is one row of the VATCodeBlock tax table.
type TaxRow struct {
	VATCode string
	Comment string
}
