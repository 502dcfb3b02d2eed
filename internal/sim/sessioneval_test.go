package sim_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dooriq/simserver/internal/domain"
	"github.com/dooriq/simserver/internal/sim"
)

func TestEvaluateSession(t *testing.T) {
	Convey("Given a session evaluator", t, func() {
		Convey("A session with zero turns still evaluates completely", func() {
			eval := sim.EvaluateSession(nil, domain.LiveMetrics{})
			So(eval.Score, ShouldEqual, 0)
			So(eval.Result, ShouldEqual, domain.ResultFail)
			So(eval.Rubric.Total(), ShouldEqual, eval.Score)
			So(len(eval.MissedOpportunities), ShouldBeGreaterThan, 0)
		})

		Convey("The rubric breakdown always sums to the score", func() {
			histories := [][]domain.Message{
				nil,
				{repSays("What pests have you seen lately?")},
				{
					repSays("What pests have you seen around the yard?"),
					prospectSays("Ants and a wasp nest."),
					repSays("Our barrier treatment will protect the whole perimeter, warranty included."),
					prospectSays("That's more than I expected."),
					repSays("I get that, a lot of folks say so. The warranty makes it worth it."),
					prospectSays("Maybe."),
					repSays("Let's schedule an appointment tomorrow, morning or afternoon?"),
				},
			}
			for _, h := range histories {
				eval := sim.EvaluateSession(h, domain.LiveMetrics{})
				So(eval.Rubric.Total(), ShouldEqual, eval.Score)
				So(eval.Score, ShouldBeBetweenOrEqual, 0, 100)
			}
		})

		Convey("Result labels follow the fixed cutoffs", func() {
			So(domain.ResultForScore(80), ShouldEqual, domain.ResultPass)
			So(domain.ResultForScore(100), ShouldEqual, domain.ResultPass)
			So(domain.ResultForScore(79), ShouldEqual, domain.ResultPartial)
			So(domain.ResultForScore(50), ShouldEqual, domain.ResultPartial)
			So(domain.ResultForScore(49), ShouldEqual, domain.ResultFail)
			So(domain.ResultForScore(0), ShouldEqual, domain.ResultFail)
		})

		Convey("Strong categories produce feedback bullets, weak ones coaching", func() {
			history := []domain.Message{
				repSays("What pest problems have you been seeing this season?"),
				prospectSays("Ants in the kitchen."),
				repSays("How long has that been going on?"),
				prospectSays("A few months."),
				repSays("Where do they usually show up?"),
				prospectSays("Near the sink."),
				repSays("What have you tried so far?"),
				prospectSays("Sprays from the store."),
			}
			eval := sim.EvaluateSession(history, domain.LiveMetrics{})
			So(eval.FeedbackBullets, ShouldNotBeEmpty)    // discovery was strong
			So(eval.MissedOpportunities, ShouldNotBeEmpty) // cta never happened
		})

		Convey("Evaluating the same session twice yields identical results", func() {
			history := []domain.Message{
				repSays("What pests have you seen?"),
				prospectSays("Spiders."),
			}
			first := sim.EvaluateSession(history, domain.LiveMetrics{})
			second := sim.EvaluateSession(history, domain.LiveMetrics{})
			So(second, ShouldResemble, first)
		})
	})
}
