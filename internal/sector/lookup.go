// Package sector maps trading symbols to sectors for exposure analysis.
package sector

// Lookup resolves a trading symbol to its sector. Implementations are
// injected so the mapping can be swapped or versioned independently of the
// components that consume it.
type Lookup interface {
	Sector(symbol string) string
	Version() string
}

// Static is an immutable in-memory Lookup.
type Static struct {
	version string
	bySym   map[string]string
}

// NewStatic builds a Static lookup from the given mapping. Symbols missing
// from the mapping resolve to "Others".
func NewStatic(version string, mapping map[string]string) *Static {
	bySym := make(map[string]string, len(mapping))
	for sym, sec := range mapping {
		bySym[sym] = sec
	}
	return &Static{version: version, bySym: bySym}
}

// Default returns the built-in NSE sector table, optionally extended with
// overrides from configuration. Overrides win on conflict.
func Default(overrides map[string]string) *Static {
	mapping := make(map[string]string, len(nseSectors)+len(overrides))
	for sym, sec := range nseSectors {
		mapping[sym] = sec
	}
	for sym, sec := range overrides {
		mapping[sym] = sec
	}
	version := "nse-2024.1"
	if len(overrides) > 0 {
		version += "+local"
	}
	return NewStatic(version, mapping)
}

func (s *Static) Sector(symbol string) string {
	if sec, ok := s.bySym[symbol]; ok {
		return sec
	}
	return "Others"
}

func (s *Static) Version() string { return s.version }

// nseSectors is the built-in symbol table for NSE-listed names.
var nseSectors = map[string]string{
	// Banking & financial services
	"HDFCBANK": "Banking", "ICICIBANK": "Banking", "SBIN": "Banking",
	"AXISBANK": "Banking", "KOTAKBANK": "Banking", "HDFC": "Banking",
	"IDFCFIRSTB": "Banking", "BANDHANBNK": "Banking", "INDUSINDBK": "Banking",
	"BAJFINANCE": "NBFC",

	// IT
	"TCS": "IT", "INFY": "IT", "WIPRO": "IT", "HCLTECH": "IT", "TECHM": "IT",
	"MPHASIS": "IT", "LTI": "IT", "PERSISTENT": "IT",

	// Oil & gas
	"RELIANCE": "Oil & Gas", "ONGC": "Oil & Gas", "IOC": "Oil & Gas",
	"BPCL": "Oil & Gas", "HPCL": "Oil & Gas", "GAIL": "Oil & Gas",

	// Auto
	"MARUTI": "Auto", "TATAMOTORS": "Auto", "M&M": "Auto",
	"HEROMOTOCO": "Auto", "BAJAJ-AUTO": "Auto", "EICHERMOT": "Auto",
	"ASHOKLEY": "Auto", "TVSMOTOR": "Auto",

	// Pharma & healthcare
	"SUNPHARMA": "Pharma", "DRREDDY": "Pharma", "CIPLA": "Pharma",
	"DIVISLAB": "Pharma", "APOLLOHOSP": "Pharma", "BIOCON": "Pharma",

	// Consumer goods
	"HINDUNILVR": "FMCG", "ITC": "FMCG", "NESTLEIND": "FMCG",
	"BRITANNIA": "FMCG", "MARICO": "FMCG", "DABUR": "FMCG",
	"TATACONSUM": "FMCG",

	// Metals & mining
	"TATASTEEL": "Metals", "JSWSTEEL": "Metals", "HINDALCO": "Metals",
	"VEDL": "Metals", "COALINDIA": "Metals", "NMDC": "Metals",

	// Real estate
	"DLF": "Real Estate", "GODREJPROP": "Real Estate", "PRESTIGE": "Real Estate",

	// Telecom
	"BHARTIARTL": "Telecom", "IDEA": "Telecom",

	// Power & utilities
	"NTPC": "Power", "POWERGRID": "Power", "TATAPOWER": "Power",

	// Cement & construction
	"ULTRACEMCO": "Cement", "SHREECEM": "Cement", "ACC": "Cement",
	"RAMCOCEM": "Cement",

	// ETFs
	"NIFTYBEES": "ETF", "GOLDBEES": "ETF", "JUNIORBEES": "ETF", "BANKBEES": "ETF",

	// Others
	"LT": "Engineering", "ADANIENT": "Diversified", "ADANIPORTS": "Infrastructure",
}

// IsIndexFund reports whether the symbol is one of the passive index/ETF
// instruments. Used by the idea-generator fallback to pick capital sources.
func IsIndexFund(symbol string) bool {
	return nseSectors[symbol] == "ETF"
}
