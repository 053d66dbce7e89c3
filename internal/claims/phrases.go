package claims

import (
	"math/rand/v2"
	"strings"
)

// Word lists for memorable claim codes. The address space (~47k phrases) is
// large relative to any realistic batch, so collision retries in
// GenerateClaimCodes stay rare.
var (
	adverbs = []string{
		"badly", "boldly", "bravely", "calmly", "daily", "eagerly", "easily",
		"fast", "gently", "gladly", "kindly", "loudly", "neatly", "nicely",
		"oddly", "only", "politely", "quickly", "quietly", "rarely", "sadly",
		"slowly", "softly", "truly", "warmly", "wildly",
	}
	adjectives = []string{
		"amber", "basic", "bitter", "brave", "bright", "busy", "calm",
		"clever", "cloudy", "cold", "crisp", "dusty", "early", "fancy",
		"fuzzy", "gentle", "golden", "happy", "humble", "lively", "lucky",
		"mellow", "misty", "noble", "proud", "quiet", "rapid", "rustic",
		"shiny", "silent", "sturdy", "sunny", "swift", "tidy", "witty",
	}
	nouns = []string{
		"acorn", "badger", "beacon", "canyon", "cedar", "comet", "falcon",
		"fern", "galaxy", "garnet", "harbor", "heron", "lagoon", "lantern",
		"maple", "meadow", "nebula", "otter", "pebble", "pine", "prairie",
		"raven", "river", "saddle", "sparrow", "summit", "thicket", "tundra",
		"walnut", "willow", "wren", "zephyr",
	}
)

// GeneratePhrases returns count distinct memorable codes of the form
// adverb-adjective-noun. It is the default CodeGenerator for
// GenerateClaimCodes and interchangeable with any other generator.
func GeneratePhrases(count int) []string {
	phrases := make([]string, 0, count)
	seen := make(map[string]bool, count)
	for len(phrases) < count {
		phrase := strings.Join([]string{
			adverbs[rand.IntN(len(adverbs))],
			adjectives[rand.IntN(len(adjectives))],
			nouns[rand.IntN(len(nouns))],
		}, "-")
		if seen[phrase] {
			continue
		}
		seen[phrase] = true
		phrases = append(phrases, phrase)
	}
	return phrases
}
