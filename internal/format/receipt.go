// Package format renders orders into printer-ready ESC/POS byte sequences.
// Rendering is pure: the same order and configuration always produce
// byte-identical output, so receipts can be golden-file tested.
package format

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ristora/order-print-agent/internal/model"
)

// receipt accumulates lines and control codes for one print job.
type receipt struct {
	buf  bytes.Buffer
	cols int
}

func newReceipt(width model.PaperWidth) *receipt {
	r := &receipt{cols: width.Columns()}
	r.buf.Write(escInit)
	return r
}

func (r *receipt) raw(b []byte)  { r.buf.Write(b) }
func (r *receipt) line(s string) { r.buf.WriteString(s); r.buf.WriteByte('\n') }
func (r *receipt) blank()        { r.buf.WriteByte('\n') }

// emph prints a line with bold emphasis on.
func (r *receipt) emph(s string) {
	r.raw(boldOn)
	r.line(s)
	r.raw(boldOff)
}

// headline prints a centered, double-size, bold line.
func (r *receipt) headline(s string) {
	r.raw(alignCenter)
	r.raw(doubleOn)
	r.raw(boldOn)
	r.line(s)
	r.raw(boldOff)
	r.raw(doubleOff)
	r.raw(alignLeft)
}

// priced prints a label with the price right-aligned on a dot-leader fill.
// Widths are measured in runes so accented names keep the price column and
// truncation never splits a multibyte sequence.
func (r *receipt) priced(label, price string) {
	chars := []rune(label)
	width := utf8.RuneCountInString(price)
	pad := r.cols - len(chars) - width - 2
	if pad < 1 {
		keep := r.cols - width - 3
		if keep < 1 {
			keep = 1
		}
		chars = chars[:keep]
		pad = 1
	}
	r.line(string(chars) + " " + strings.Repeat(".", pad) + " " + price)
}

// wrapped prints s, breaking it at the column width.
func (r *receipt) wrapped(s string) {
	chars := []rune(s)
	for len(chars) > r.cols {
		r.line(string(chars[:r.cols]))
		chars = chars[r.cols:]
	}
	r.line(string(chars))
}

func (r *receipt) rule() {
	r.line(strings.Repeat("-", r.cols))
}

// trailer feeds past the cut line and issues a partial cut. Narrow paper
// needs extra feed before the blade.
func (r *receipt) trailer(width model.PaperWidth) {
	if width == model.Paper58mm {
		r.raw(feedLines(5))
	} else {
		r.raw(feedLines(3))
	}
	r.raw(partialCut)
}

func (r *receipt) bytes() []byte { return r.buf.Bytes() }

func money(currency string, d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}

func tableLabel(o *model.Order) string {
	if o.TableNumber == "" {
		return "N/A"
	}
	return o.TableNumber
}

// Kitchen renders the no-price kitchen slip. Order number, table and item
// name lines carry emphasis so they scan from across the pass.
func Kitchen(o *model.Order, cfg model.DestinationConfig) []byte {
	r := newReceipt(cfg.PaperWidth)

	r.headline("ORDER " + o.Number)
	r.emph("TABLE: " + tableLabel(o))
	if o.CustomerName != "" {
		r.line("Customer: " + o.CustomerName)
	}
	r.rule()

	for _, it := range o.Items {
		r.emph(fmt.Sprintf("%dx %s", it.Quantity, it.Name))
		if it.Variation != "" {
			r.line("   " + it.Variation)
		}
		if it.Note != "" {
			r.wrapped("   * " + it.Note)
		}
	}

	r.trailer(cfg.PaperWidth)
	return r.bytes()
}

// Cashier renders the full customer receipt with prices. The currency symbol
// comes from configuration; every amount is printed with two decimals.
func Cashier(o *model.Order, cfg model.DestinationConfig, restaurant, currency string) []byte {
	r := newReceipt(cfg.PaperWidth)

	r.headline(restaurant)
	r.blank()
	r.line("Order:  " + o.Number)
	r.line("Type:   " + string(o.Type))
	r.line("Table:  " + tableLabel(o))
	r.line("Date:   " + o.OrderDate.Local().Format("02/01/2006 15:04"))
	if o.CustomerName != "" {
		r.line("Name:   " + o.CustomerName)
	}
	if o.CustomerPhone != "" {
		r.line("Phone:  " + o.CustomerPhone)
	}
	r.rule()

	for _, it := range o.Items {
		label := fmt.Sprintf("%dx %s", it.Quantity, it.Name)
		if it.Variation != "" {
			label += " (" + it.Variation + ")"
		}
		r.priced(label, money(currency, it.LineTotal))
		if it.Note != "" {
			r.wrapped("   * " + it.Note)
		}
	}
	r.rule()

	if !o.Subtotal.IsZero() {
		r.priced("Subtotal", money(currency, o.Subtotal))
	}
	if !o.Tax.IsZero() {
		r.priced("Tax", money(currency, o.Tax))
	}
	if !o.Discount.IsZero() {
		r.priced("Discount", "-"+money(currency, o.Discount))
	}
	if !o.DeliveryFee.IsZero() {
		r.priced("Delivery", money(currency, o.DeliveryFee))
	}
	if !o.Tip.IsZero() {
		r.priced("Tip", money(currency, o.Tip))
	}
	r.raw(boldOn)
	r.priced("TOTAL", money(currency, o.Total))
	r.raw(boldOff)

	if len(o.Payments) > 0 {
		r.rule()
		for _, p := range o.Payments {
			r.priced("Paid "+p.Method, money(currency, p.Amount))
		}
	}

	if o.Type == model.OrderTypeDelivery && o.Address != nil {
		r.rule()
		r.emph("DELIVER TO")
		r.wrapped(o.Address.Street)
		city := o.Address.City
		if o.Address.PostCode != "" {
			city += " " + o.Address.PostCode
		}
		r.wrapped(city)
		if o.Address.Notes != "" {
			r.wrapped("* " + o.Address.Notes)
		}
	}

	r.trailer(cfg.PaperWidth)
	return r.bytes()
}
