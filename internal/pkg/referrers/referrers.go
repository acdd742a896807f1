package referrers

import "strings"

// Site is the referral site category of an event.
type Site string

// Site categories
const (
	LinkedIn  Site = "LinkedIn"
	Google    Site = "Google"
	Instagram Site = "Instagram"
	Twitter   Site = "Twitter"
	Other     Site = "Other"
)

type rule struct {
	site    Site
	needles []string
}

// Checked in order; the first rule with a matching needle wins, so a
// referrer mentioning both linkedin and google is LinkedIn.
var rules = []rule{
	{site: LinkedIn, needles: []string{"linkedin", "lnkd.in"}},
	{site: Google, needles: []string{"google"}},
	{site: Instagram, needles: []string{"instagram"}},
	{site: Twitter, needles: []string{"twitter"}},
}

// Classify maps a referrer to its site category. A nil or empty referrer
// is Other.
func Classify(referrer *string) Site {
	if referrer == nil {
		return Other
	}
	return ClassifyString(*referrer)
}

// ClassifyString is Classify for a non-null referrer.
func ClassifyString(referrer string) Site {
	if referrer == "" {
		return Other
	}

	lowered := strings.ToLower(referrer)
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(lowered, needle) {
				return r.site
			}
		}
	}

	return Other
}

// All returns every site category in classification order, Other last.
func All() []Site {
	sites := make([]Site, 0, len(rules)+1)
	for _, r := range rules {
		sites = append(sites, r.site)
	}
	return append(sites, Other)
}
