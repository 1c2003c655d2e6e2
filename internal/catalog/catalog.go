// Package catalog holds the builtin universe of well-known symbols used when
// no upstream provider can serve a search, plus realistic reference prices
// for synthetic quotes.
package catalog

import "strings"

// Entry is one builtin instrument. BasePrice/BaseChange are zero for symbols
// we only know by name; the synthetic generator derives a price range from
// the instrument type in that case.
type Entry struct {
	Symbol     string
	Name       string
	Exchange   string
	Type       string
	BasePrice  float64
	BaseChange float64
}

const (
	TypeStock      = "STOCK"
	TypeETF        = "ETF"
	TypeMutualFund = "MUTUAL_FUND"
)

var builtin = []Entry{
	// Large-cap tech, with reference prices.
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 155.30, BaseChange: 3.95},
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 193.25, BaseChange: -1.15},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 448.35, BaseChange: 2.78},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 180.45, BaseChange: -0.89},
	{Symbol: "GOOG", Name: "Alphabet Inc. Class C", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 182.10, BaseChange: -0.75},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 189.67, BaseChange: 4.23},
	{Symbol: "META", Name: "Meta Platforms Inc.", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 498.12, BaseChange: -2.34},
	{Symbol: "TSLA", Name: "Tesla Inc.", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 251.52, BaseChange: 6.78},
	{Symbol: "AMD", Name: "Advanced Micro Devices", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 158.90, BaseChange: 2.45},
	{Symbol: "INTC", Name: "Intel Corporation", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 33.85, BaseChange: -0.23},
	{Symbol: "NFLX", Name: "Netflix Inc.", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 638.45, BaseChange: 8.90},
	// Semiconductors.
	{Symbol: "TSM", Name: "Taiwan Semiconductor", Exchange: "NYSE", Type: TypeStock, BasePrice: 172.45, BaseChange: 2.15},
	{Symbol: "AVGO", Name: "Broadcom Inc.", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 1789.45, BaseChange: 15.67},
	{Symbol: "QCOM", Name: "Qualcomm Inc.", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 212.34, BaseChange: 3.45},
	{Symbol: "MU", Name: "Micron Technology", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 118.90, BaseChange: -1.23},
	{Symbol: "MRVL", Name: "Marvell Technology", Exchange: "NASDAQ", Type: TypeStock},
	{Symbol: "NVTS", Name: "Navitas Semiconductor", Exchange: "NASDAQ", Type: TypeStock, BasePrice: 8.45, BaseChange: 0.35},
	// Other large caps.
	{Symbol: "ORCL", Name: "Oracle Corporation", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "CRM", Name: "Salesforce Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "IBM", Name: "IBM Corporation", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "DIS", Name: "Walt Disney Company", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "PYPL", Name: "PayPal Holdings Inc.", Exchange: "NASDAQ", Type: TypeStock},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "BAC", Name: "Bank of America Corp", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "SHOP", Name: "Shopify Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "SQ", Name: "Block Inc.", Exchange: "NYSE", Type: TypeStock},
	// Dow components.
	{Symbol: "MMM", Name: "3M Company", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "AXP", Name: "American Express Company", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "BA", Name: "Boeing Company", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "CAT", Name: "Caterpillar Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "CVX", Name: "Chevron Corporation", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "CSCO", Name: "Cisco Systems Inc.", Exchange: "NASDAQ", Type: TypeStock},
	{Symbol: "KO", Name: "Coca-Cola Company", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "GS", Name: "Goldman Sachs Group Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "HD", Name: "Home Depot Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "JNJ", Name: "Johnson & Johnson", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "MCD", Name: "McDonald's Corporation", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "MRK", Name: "Merck & Co. Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "NKE", Name: "Nike Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "PG", Name: "Procter & Gamble Company", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "UNH", Name: "UnitedHealth Group Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "VZ", Name: "Verizon Communications Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "V", Name: "Visa Inc.", Exchange: "NYSE", Type: TypeStock},
	{Symbol: "WMT", Name: "Walmart Inc.", Exchange: "NYSE", Type: TypeStock},
	// Index and sector ETFs.
	{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "QQQ", Name: "Invesco QQQ Trust", Exchange: "NASDAQ", Type: TypeETF},
	{Symbol: "DIA", Name: "SPDR Dow Jones Industrial Average ETF", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "IWM", Name: "iShares Russell 2000 ETF", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "VTI", Name: "Vanguard Total Stock Market ETF", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "VOO", Name: "Vanguard S&P 500 ETF", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "XLK", Name: "Technology Select Sector SPDR Fund", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "XLF", Name: "Financial Select Sector SPDR Fund", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "XLE", Name: "Energy Select Sector SPDR Fund", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "GLD", Name: "SPDR Gold Shares", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "SLV", Name: "iShares Silver Trust", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "EEM", Name: "iShares MSCI Emerging Markets ETF", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "AGG", Name: "iShares Core U.S. Aggregate Bond ETF", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "TLT", Name: "iShares 20+ Year Treasury Bond ETF", Exchange: "NASDAQ", Type: TypeETF},
	{Symbol: "VNQ", Name: "Vanguard Real Estate ETF", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "ARKK", Name: "ARK Innovation ETF", Exchange: "NYSE", Type: TypeETF},
	{Symbol: "ICLN", Name: "iShares Global Clean Energy ETF", Exchange: "NASDAQ", Type: TypeETF},
	{Symbol: "SMH", Name: "VanEck Semiconductor ETF", Exchange: "NASDAQ", Type: TypeETF},
	{Symbol: "SOXX", Name: "iShares Semiconductor ETF", Exchange: "NASDAQ", Type: TypeETF},
}

var bySymbol = func() map[string]Entry {
	m := make(map[string]Entry, len(builtin))
	for _, e := range builtin {
		m[e.Symbol] = e
	}
	return m
}()

// Builtin returns the full builtin universe.
func Builtin() []Entry { return builtin }

// Lookup returns the builtin entry for symbol, if any.
func Lookup(symbol string) (Entry, bool) {
	e, ok := bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return e, ok
}
