// Package intent assigns a discrete intent label to a normalized query using
// an explicit, data-driven rule table.
package intent

import (
	"regexp"

	"github.com/retriever-labs/campusqa/internal/domain/query"
)

// rule is one scored trigger: if pattern matches the normalized text, weight
// is added to the intent's score. Rules are evaluated in table order.
type rule struct {
	intent  query.Intent
	name    string
	pattern *regexp.Regexp
	weight  int
}

// entityBoost adds weight to an intent when an entity of the given type is
// present. A concrete course code is the strongest class-lookup signal.
type entityBoost struct {
	entityType query.EntityType
	intent     query.Intent
	name       string
	weight     int
}

// priority is the documented total order used to break score ties.
var priority = []query.Intent{
	query.IntentClassLookup,
	query.IntentDeadlineLookup,
	query.IntentEventLookup,
	query.IntentBuildingLookup,
	query.IntentGeneralQuestion,
}

var rules = []rule{
	{query.IntentClassLookup, "kw:class", regexp.MustCompile(`\bclass(es)?\b`), 1},
	{query.IntentClassLookup, "kw:course", regexp.MustCompile(`\bcourses?\b`), 1},
	{query.IntentClassLookup, "kw:section", regexp.MustCompile(`\bsections?\b`), 1},
	{query.IntentClassLookup, "kw:instructor", regexp.MustCompile(`\b(instructor|professor)\b`), 1},
	{query.IntentClassLookup, "kw:syllabus", regexp.MustCompile(`\bsyllabus\b`), 1},
	{query.IntentClassLookup, "kw:register", regexp.MustCompile(`\bregist(er|ration)\b`), 1},

	{query.IntentDeadlineLookup, "kw:deadline", regexp.MustCompile(`\bdeadlines?\b`), 2},
	{query.IntentDeadlineLookup, "kw:add-drop", regexp.MustCompile(`\badd\b.{0,8}\bdrop\b`), 2},
	{query.IntentDeadlineLookup, "kw:due-date", regexp.MustCompile(`\bdue date\b`), 2},
	{query.IntentDeadlineLookup, "kw:last-day", regexp.MustCompile(`\blast day\b`), 2},
	{query.IntentDeadlineLookup, "kw:when", regexp.MustCompile(`\bwhen\b`), 1},
	{query.IntentDeadlineLookup, "kw:calendar", regexp.MustCompile(`\bcalendar\b`), 1},

	{query.IntentEventLookup, "kw:event", regexp.MustCompile(`\bevents?\b`), 2},
	{query.IntentEventLookup, "kw:workshop", regexp.MustCompile(`\bworkshops?\b`), 1},
	{query.IntentEventLookup, "kw:seminar", regexp.MustCompile(`\b(seminar|talk)s?\b`), 1},
	{query.IntentEventLookup, "kw:club", regexp.MustCompile(`\bclubs?\b`), 1},
	{query.IntentEventLookup, "kw:free-food", regexp.MustCompile(`\bfree food\b`), 1},
	{query.IntentEventLookup, "kw:happening", regexp.MustCompile(`\bhappening\b`), 1},

	{query.IntentBuildingLookup, "kw:where", regexp.MustCompile(`\bwhere\b`), 1},
	{query.IntentBuildingLookup, "kw:locate", regexp.MustCompile(`\blocat(e|ed|ion)\b`), 1},
	{query.IntentBuildingLookup, "kw:directions", regexp.MustCompile(`\bdirections?\b`), 1},
	{query.IntentBuildingLookup, "kw:building", regexp.MustCompile(`\bbuildings?\b`), 1},
	{query.IntentBuildingLookup, "kw:room", regexp.MustCompile(`\brooms?\b`), 1},
	{query.IntentBuildingLookup, "kw:map", regexp.MustCompile(`\bmap\b`), 1},

	{query.IntentGeneralQuestion, "kw:hours", regexp.MustCompile(`\bhours\b`), 1},
	{query.IntentGeneralQuestion, "kw:open-close", regexp.MustCompile(`\b(open|close[sd]?)\b`), 1},
	{query.IntentGeneralQuestion, "kw:dining", regexp.MustCompile(`\b(dining|food court)\b`), 1},
}

var boosts = []entityBoost{
	{query.EntityCourseCode, query.IntentClassLookup, "entity:course_code", 3},
	{query.EntityDepartment, query.IntentClassLookup, "entity:department", 2},
	{query.EntityTerm, query.IntentClassLookup, "entity:term", 1},
	{query.EntityBuilding, query.IntentBuildingLookup, "entity:building", 2},
	{query.EntityRoom, query.IntentBuildingLookup, "entity:room", 1},
	{query.EntityService, query.IntentGeneralQuestion, "entity:service", 1},
}

// Prediction is the classification outcome. Triggers lists the rule names
// that contributed to the winning intent, for inspection and debugging.
type Prediction struct {
	Intent   query.Intent
	Score    int
	Triggers []string
}

// Classifier scores a normalized query against the rule table.
type Classifier struct{}

// New creates a Classifier.
func New() *Classifier { return &Classifier{} }

// Classify returns exactly one intent. A query matching no rule and carrying
// no boosting entity is IntentUnknown, never an empty label. Ties are broken
// by the fixed priority order.
func (c *Classifier) Classify(normalized string, entities []query.Entity) Prediction {
	scores := map[query.Intent]int{}
	triggers := map[query.Intent][]string{}

	for _, r := range rules {
		if r.pattern.MatchString(normalized) {
			scores[r.intent] += r.weight
			triggers[r.intent] = append(triggers[r.intent], r.name)
		}
	}

	for _, b := range boosts {
		for _, e := range entities {
			if e.Type == b.entityType {
				scores[b.intent] += b.weight
				triggers[b.intent] = append(triggers[b.intent], b.name)
				break
			}
		}
	}

	best := query.IntentUnknown
	bestScore := 0
	for _, candidate := range priority {
		if scores[candidate] > bestScore {
			best = candidate
			bestScore = scores[candidate]
		}
	}

	return Prediction{
		Intent:   best,
		Score:    bestScore,
		Triggers: triggers[best],
	}
}
