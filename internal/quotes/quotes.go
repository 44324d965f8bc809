// Package quotes holds the static library of Bhagavad Gita quotes that seed
// every reel, together with the default hashtag set.
package quotes

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Quote seeds a reel: the line shown and narrated, where it comes from and a
// short context the script writer can lean on.
type Quote struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Source  string `json:"source"`
	Context string `json:"context"`
}

// Hashtags are appended to every caption after any user supplied tags.
var Hashtags = []string{
	"#LordKrishna",
	"#BhagavadGita",
	"#krishna",
	"#harekrishna",
	"#radhakrishna",
	"#radhekrishna",
	"#jaishreekrishna",
	"#krishnalove",
	"#krishnaconsciousness",
	"#krishnamotivation",
	"#krishnainspiration",
	"#gita",
}

var library = []Quote{
	{
		ID:      "gita-2-47",
		Text:    "You have the right to work, but never to the fruit of work.",
		Source:  "Bhagavad Gita 2.47",
		Context: "Krishna reminds Arjuna to focus on righteous action without attachment to results.",
	},
	{
		ID:      "gita-18-66",
		Text:    "Abandon all varieties of dharma and simply surrender unto Me.",
		Source:  "Bhagavad Gita 18.66",
		Context: "A call to surrender ego and fears, trusting the divine plan completely.",
	},
	{
		ID:      "gita-6-5",
		Text:    "Lift yourself by yourself; do not let yourself down.",
		Source:  "Bhagavad Gita 6.5",
		Context: "An invitation to become your own ally by mastering the mind with discipline.",
	},
	{
		ID:      "gita-4-7",
		Text:    "Whenever righteousness declines and unrighteousness rises, I manifest Myself.",
		Source:  "Bhagavad Gita 4.7",
		Context: "A reminder that divine guidance appears whenever darkness seems overwhelming.",
	},
	{
		ID:      "gita-10-8",
		Text:    "I am the source of all spiritual and material worlds.",
		Source:  "Bhagavad Gita 10.8",
		Context: "Motivates devotees to draw strength from the inexhaustible source of creation.",
	},
	{
		ID:      "gita-12-15",
		Text:    "By whom the world is not agitated and who cannot be agitated by the world, he is dear to Me.",
		Source:  "Bhagavad Gita 12.15",
		Context: "Krishna praises steady-minded devotees who stay calm amidst chaos and serve with compassion.",
	},
	{
		ID:      "gita-3-19",
		Text:    "Perform your duty equipoised, abandoning all attachment to success or failure.",
		Source:  "Bhagavad Gita 3.19",
		Context: "Motivates warriors and seekers alike to act with excellence and grace.",
	},
	{
		ID:      "gita-2-22",
		Text:    "As a person sheds worn-out garments and wears new ones, the soul discards worn-out bodies and enters new ones.",
		Source:  "Bhagavad Gita 2.22",
		Context: "Inspires fearlessness by highlighting the eternal nature of the soul.",
	},
	{
		ID:      "gita-5-10",
		Text:    "One who performs duty without attachment and surrenders the results unto the Supreme is unaffected by sinful action.",
		Source:  "Bhagavad Gita 5.10",
		Context: "A motivating reminder that surrender purifies the heart and refines karma.",
	},
	{
		ID:      "gita-18-58",
		Text:    "If you become conscious of Me, you will pass over all obstacles of conditioned life.",
		Source:  "Bhagavad Gita 18.58",
		Context: "Encourages daily remembrance of Krishna to navigate life's tests.",
	},
	{
		ID:      "mahabharata-udbhava",
		Text:    "When meditation is mastered, the mind is unwavering like the flame of a lamp in a windless place.",
		Source:  "Bhagavad Gita 6.19",
		Context: "Calls seekers to cultivate stillness and clarity every single day.",
	},
	{
		ID:      "gita-4-13",
		Text:    "I created the four social divisions according to qualities and work.",
		Source:  "Bhagavad Gita 4.13",
		Context: "Reminds us to honor our unique gifts and serve society with devotion.",
	},
	{
		ID:      "gita-11-55",
		Text:    "He who does all work for Me, depends on Me, is devoted to Me, is free from attachment and enmity towards all beings, comes to Me.",
		Source:  "Bhagavad Gita 11.55",
		Context: "Motivates living with bhakti and universal compassion for every soul.",
	},
}

// All returns a copy of the library in its canonical order.
func All() []Quote {
	return append([]Quote(nil), library...)
}

// Random picks a quote uniformly. A nil rng uses the global source.
func Random(rng *rand.Rand) Quote {
	if rng == nil {
		return library[rand.IntN(len(library))]
	}
	return library[rng.IntN(len(library))]
}

// ByID looks a quote up by its identifier, ignoring case.
func ByID(id string) (Quote, error) {
	id = strings.TrimSpace(id)
	for _, q := range library {
		if strings.EqualFold(q.ID, id) {
			return q, nil
		}
	}
	return Quote{}, fmt.Errorf("unknown quote %q", id)
}
