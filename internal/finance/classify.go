package finance

import "strings"

// classifyRule maps a set of substring keywords to a category label. Rules
// are scanned in order and the first match wins, so specific merchants must
// come before loose generic keywords ("publix" before "pub").
type classifyRule struct {
	keywords []string
	category string
}

// classifyRules is the canonical ordered rule table. Do not reorder entries:
// classification outcomes depend on scan order for overlapping keywords.
var classifyRules = []classifyRule{
	// Income and transfers first so payroll deposits and account moves never
	// fall through to a merchant rule.
	{[]string{"payroll", "direct deposit", "direct dep", "salary", "paycheck", "gusto", "adp"}, "Income"},
	{[]string{"transfer", "zelle", "venmo", "cash app", "wire "}, "Transfer"},

	// Grocery chains before anything resembling a restaurant keyword.
	{[]string{"publix", "kroger", "safeway", "wegmans", "aldi", "trader joe", "whole foods", "food lion", "h-e-b", "heb ", "winn-dixie", "sprouts", "grocery", "supermarket"}, "Groceries"},

	// Delivery platforms before the ride-share rule ("uber eats" vs "uber").
	{[]string{"uber eats", "doordash", "grubhub", "postmates", "seamless", "caviar"}, "Food and Drink"},
	{[]string{"starbucks", "dunkin", "peet", "caribou coffee", "coffee"}, "Coffee Shops"},
	{[]string{"mcdonald", "burger king", "wendy", "taco bell", "chick-fil-a", "kfc", "popeyes", "chipotle", "five guys", "in-n-out"}, "Fast Food"},
	{[]string{"restaurant", "pizza", "sushi", "grill", "cantina", "bistro", "diner", "eatery", "tavern", "brewery", "pub", "bar "}, "Restaurants"},

	{[]string{"instacart", "costco", "sam's club", "bj's wholesale"}, "Groceries"},

	// Transport.
	{[]string{"uber", "lyft", "taxi", "curb"}, "Ride Share"},
	{[]string{"shell", "exxon", "chevron", "bp ", "mobil", "texaco", "sunoco", "wawa", "gas station", "fuel"}, "Gas"},
	{[]string{"parking", "toll", "mta", "metro", "transit", "amtrak", "bart"}, "Transportation"},
	{[]string{"delta", "united airlines", "american airlines", "southwest", "jetblue", "alaska air", "spirit air", "frontier air", "airline", "airways"}, "Travel"},
	{[]string{"hotel", "marriott", "hilton", "hyatt", "airbnb", "vrbo", "expedia", "booking.com", "hertz", "avis", "enterprise rent", "cruise"}, "Travel"},

	// Streaming and subscriptions before generic shopping ("apple" vs "apple store").
	{[]string{"netflix", "spotify", "hulu", "disney+", "disney plus", "hbo", "max.com", "paramount+", "peacock", "youtube premium", "audible", "apple.com/bill", "apple music", "icloud"}, "Subscriptions"},
	{[]string{"patreon", "substack", "onlyfans", "membership", "subscription"}, "Subscriptions"},

	// Shopping.
	{[]string{"amazon", "amzn"}, "Shopping"},
	{[]string{"walmart", "target", "best buy", "ebay", "etsy", "wayfair", "ikea"}, "Shopping"},
	{[]string{"home depot", "lowes", "ace hardware", "menards"}, "Home Improvement"},
	{[]string{"nike", "adidas", "zara", "h&m", "old navy", "nordstrom", "macy", "tj maxx", "tjmaxx", "marshalls", "ross "}, "Clothing"},
	{[]string{"sephora", "ulta", "salon", "barber", "spa "}, "Personal Care"},

	// Health.
	{[]string{"cvs", "walgreens", "rite aid", "pharmacy", "rx "}, "Pharmacy"},
	{[]string{"hospital", "clinic", "medical", "dental", "dentist", "doctor", "urgent care", "labcorp", "quest diagnostics"}, "Health"},
	{[]string{"planet fitness", "equinox", "crossfit", "gym", "yoga", "peloton", "fitness"}, "Fitness"},

	// Housing and utilities.
	{[]string{"rent", "apartment", "property management"}, "Rent"},
	{[]string{"mortgage"}, "Mortgage"},
	{[]string{"comcast", "xfinity", "spectrum", "centurylink", "frontier comm", "internet"}, "Internet"},
	{[]string{"verizon", "at&t", "t-mobile", "tmobile", "sprint", "mint mobile", "wireless"}, "Phone"},
	{[]string{"electric", "power co", "pg&e", "con edison", "duke energy", "water bill", "sewer", "gas bill", "utility", "utilities"}, "Utilities"},
	{[]string{"geico", "progressive", "state farm", "allstate", "insurance"}, "Insurance"},

	// Entertainment.
	{[]string{"steam", "playstation", "xbox", "nintendo", "twitch", "epic games"}, "Video Games"},
	{[]string{"amc ", "regal", "cinemark", "cinema", "movie", "theater", "theatre", "ticketmaster", "stubhub", "concert"}, "Entertainment"},
	{[]string{"liquor", "wine", "brewing", "total wine", "bevmo"}, "Alcohol"},

	// Financial.
	{[]string{"robinhood", "fidelity", "vanguard", "schwab", "etrade", "coinbase", "wealthfront", "betterment", "acorns"}, "Investments"},
	{[]string{"student loan", "navient", "nelnet", "sallie mae", "sofi", "loan payment", "lending"}, "Loan Payment"},
	{[]string{"overdraft", "service charge", "late fee", "annual fee", "atm fee", "interest charge", "fee"}, "Fees and Charges"},
	{[]string{"irs", "tax payment", "franchise tax", "h&r block", "turbotax"}, "Taxes"},

	// Miscellaneous.
	{[]string{"tuition", "udemy", "coursera", "university", "college", "school"}, "Education"},
	{[]string{"chewy", "petco", "petsmart", "veterinary", "vet "}, "Pets"},
	{[]string{"gofundme", "red cross", "donation", "charity"}, "Charity"},
	{[]string{"usps", "ups ", "fedex", "postage"}, "Shipping"},
	{[]string{"atm withdrawal", "cash withdrawal", "withdrawal"}, "Cash"},
}

// Classify maps a transaction description and optional merchant name to a
// category label. The scan is a pure, ordered substring match over the
// lower-cased concatenation of both inputs; it always returns a label,
// "Uncategorized" when nothing matches.
func Classify(description, merchant string) string {
	text := strings.ToLower(strings.TrimSpace(description + " " + merchant))
	if text == "" {
		return CategoryUncategorized
	}

	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}

	return CategoryUncategorized
}

// CategoryVocabulary returns the distinct labels the rule table can emit,
// in rule order, plus "Uncategorized".
func CategoryVocabulary() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range classifyRules {
		if !seen[rule.category] {
			seen[rule.category] = true
			out = append(out, rule.category)
		}
	}
	return append(out, CategoryUncategorized)
}
