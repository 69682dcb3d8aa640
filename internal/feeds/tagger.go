package feeds

import (
	"sort"
	"strings"
)

// assetKeywords maps lowercase headline terms to asset symbols. Single words
// are matched per token to avoid substring hits ("sol" inside "solution");
// multi-word names are matched as substrings.
var assetKeywords = map[string]string{
	"bitcoin":      "BTC",
	"btc":          "BTC",
	"ethereum":     "ETH",
	"eth":          "ETH",
	"ether":        "ETH",
	"solana":       "SOL",
	"sol":          "SOL",
	"ripple":       "XRP",
	"xrp":          "XRP",
	"dogecoin":     "DOGE",
	"doge":         "DOGE",
	"cardano":      "ADA",
	"ada":          "ADA",
	"bnb":          "BNB",
	"binance coin": "BNB",
	"avalanche":    "AVAX",
	"avax":         "AVAX",
	"polkadot":     "DOT",
	"chainlink":    "LINK",
	"litecoin":     "LTC",
}

// TagAssets extracts the asset symbols a headline concerns. The result is
// sorted and deduplicated; an empty slice means no recognized asset.
func TagAssets(headline string) []string {
	lower := strings.ToLower(headline)
	found := make(map[string]bool)

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	tokenSet := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		tokenSet[tok] = true
	}

	for keyword, symbol := range assetKeywords {
		if strings.Contains(keyword, " ") {
			if strings.Contains(lower, keyword) {
				found[symbol] = true
			}
		} else if tokenSet[keyword] {
			found[symbol] = true
		}
	}

	tags := make([]string, 0, len(found))
	for symbol := range found {
		tags = append(tags, symbol)
	}
	sort.Strings(tags)
	return tags
}
