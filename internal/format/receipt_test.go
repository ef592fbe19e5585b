package format

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ristora/order-print-agent/internal/model"
)

func sampleOrder() *model.Order {
	return &model.Order{
		ID:          "ord_1",
		Number:      "100/2024",
		Status:      model.StatusConfirmed,
		Type:        model.OrderTypeDineIn,
		TableNumber: "7",
		OrderDate:   time.Date(2024, 6, 1, 19, 30, 0, 0, time.Local),
		Items: []model.OrderItem{
			{Name: "Margherita", Quantity: 2, UnitPrice: decimal.NewFromFloat(6), LineTotal: decimal.NewFromFloat(12), Note: "extra basil"},
			{Name: "Cola", Quantity: 1, Variation: "0.5l", UnitPrice: decimal.NewFromFloat(2.5), LineTotal: decimal.NewFromFloat(2.5)},
		},
		Subtotal: decimal.NewFromFloat(14.5),
		Tax:      decimal.NewFromFloat(1.45),
		Total:    decimal.NewFromFloat(15.95),
	}
}

func cfg(w model.PaperWidth) model.DestinationConfig {
	return model.DestinationConfig{PrinterName: "Kitchen", AutoPrint: true, Copies: 1, PaperWidth: w}
}

func TestKitchenRenderingHasNoPrices(t *testing.T) {
	out := string(Kitchen(sampleOrder(), cfg(model.Paper80mm)))

	assert.Contains(t, out, "ORDER 100/2024")
	assert.Contains(t, out, "TABLE: 7")
	assert.Contains(t, out, "2x Margherita")
	assert.Contains(t, out, "* extra basil")
	assert.Contains(t, out, "0.5l")
	assert.NotContains(t, out, "12.00")
	assert.NotContains(t, out, "15.95")
	assert.NotContains(t, out, "TOTAL")
}

func TestKitchenTableFallback(t *testing.T) {
	o := sampleOrder()
	o.TableNumber = ""
	out := string(Kitchen(o, cfg(model.Paper80mm)))
	assert.Contains(t, out, "TABLE: N/A")
}

func TestCashierRendering(t *testing.T) {
	out := string(Cashier(sampleOrder(), cfg(model.Paper80mm), "Trattoria Prova", "$"))

	assert.Contains(t, out, "Trattoria Prova")
	assert.Contains(t, out, "Order:  100/2024")
	assert.Contains(t, out, "$12.00")
	assert.Contains(t, out, "$2.50")
	assert.Contains(t, out, "Subtotal")
	assert.Contains(t, out, "$1.45")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "$15.95")

	// Zero-valued breakdown rows stay hidden.
	assert.NotContains(t, out, "Discount")
	assert.NotContains(t, out, "Delivery ")
	assert.NotContains(t, out, "Tip")
}

func TestCashierDotLeaderWidthFollowsPaper(t *testing.T) {
	wide := string(Cashier(sampleOrder(), cfg(model.Paper80mm), "R", "$"))
	narrow := string(Cashier(sampleOrder(), cfg(model.Paper58mm), "R", "$"))

	for _, tc := range []struct {
		out  string
		cols int
	}{{wide, 48}, {narrow, 32}} {
		found := false
		for _, line := range strings.Split(tc.out, "\n") {
			if strings.HasPrefix(line, "Subtotal") && strings.Contains(line, "...") {
				assert.Len(t, line, tc.cols)
				found = true
			}
		}
		assert.True(t, found, "expected a dot-leader Subtotal line")
	}
}

func TestAccentedNamesKeepColumnAlignment(t *testing.T) {
	o := sampleOrder()
	o.Items = []model.OrderItem{
		{Name: "Crème brûlée però", Quantity: 1, LineTotal: decimal.NewFromFloat(6.5)},
		{Name: strings.Repeat("Gnocchi alla sorrentina è più buono così ", 2), Quantity: 1, LineTotal: decimal.NewFromFloat(9)},
		{Name: "Caffè", Quantity: 2, LineTotal: decimal.NewFromFloat(3), Note: strings.Repeat("senza è ", 10)},
	}

	out := string(Cashier(o, cfg(model.Paper58mm), "R", "€"))
	for _, line := range strings.Split(out, "\n") {
		assert.True(t, utf8.ValidString(line), "truncation split a rune: %q", line)
		if strings.Contains(line, "...") && !strings.ContainsRune(line, 0x1B) {
			assert.Equal(t, 32, utf8.RuneCountInString(line), "price column drifted: %q", line)
		}
	}
	assert.Contains(t, out, "1x Crème brûlée però")
}

func TestCashierDeliveryBlock(t *testing.T) {
	o := sampleOrder()
	o.Type = model.OrderTypeDelivery
	o.TableNumber = ""
	o.Address = &model.DeliveryAddress{Street: "Via Roma 1", City: "Milano", PostCode: "20121"}
	o.Payments = []model.Payment{{Method: "Card", Amount: decimal.NewFromFloat(15.95)}}

	out := string(Cashier(o, cfg(model.Paper80mm), "R", "EUR "))
	assert.Contains(t, out, "DELIVER TO")
	assert.Contains(t, out, "Via Roma 1")
	assert.Contains(t, out, "Milano 20121")
	assert.Contains(t, out, "Paid Card")
	assert.Contains(t, out, "EUR 15.95")
}

func TestFormattingIsDeterministic(t *testing.T) {
	o := sampleOrder()
	c := cfg(model.Paper58mm)

	assert.Equal(t, Kitchen(o, c), Kitchen(o, c))
	assert.Equal(t, Cashier(o, c, "R", "$"), Cashier(o, c, "R", "$"))
}

func TestTrailerFeedsAndCuts(t *testing.T) {
	out := Kitchen(sampleOrder(), cfg(model.Paper80mm))
	assert.Equal(t, []byte{0x1B, 0x40}, out[:2], "job starts with printer init")
	tail := out[len(out)-7:]
	assert.Equal(t, []byte{0x1B, 0x64, 0x03, 0x1D, 0x56, 0x41, 0x00}, tail)
}
