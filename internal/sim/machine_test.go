package sim_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dooriq/simserver/internal/domain"
	"github.com/dooriq/simserver/internal/sim"
)

func TestMachineAdvance(t *testing.T) {
	Convey("Given a state machine with default thresholds", t, func() {
		m := sim.NewMachine()

		Convey("The opener moves the conversation into discovery", func() {
			next := m.Advance(domain.StateOpening, "Hi, I'm with SafeGuard Pest Control, do you have a minute?", 1)
			So(next, ShouldEqual, domain.StateDiscovery)
		})

		Convey("Price objections move toward OBJECTION from any working state", func() {
			for _, cur := range []domain.State{domain.StateOpening, domain.StateDiscovery, domain.StateValue} {
				next := m.Advance(cur, "That's more than I expected, honestly.", 3)
				So(next, ShouldEqual, domain.StateObjection)
			}
		})

		Convey("Scheduling language moves toward CLOSE", func() {
			next := m.Advance(domain.StateValue, "Can I get you on the calendar for tomorrow?", 4)
			So(next, ShouldEqual, domain.StateClose)
		})

		Convey("Value statements move discovery into VALUE", func() {
			next := m.Advance(domain.StateDiscovery, "Our barrier treatment comes with a full warranty.", 3)
			So(next, ShouldEqual, domain.StateValue)
		})

		Convey("Unrecognized input holds the current state", func() {
			next := m.Advance(domain.StateDiscovery, "The weather has been something lately.", 3)
			So(next, ShouldEqual, domain.StateDiscovery)

			next = m.Advance(domain.StateValue, "xyzzy plugh", 4)
			So(next, ShouldEqual, domain.StateValue)
		})

		Convey("TERMINAL is absorbing", func() {
			next := m.Advance(domain.StateTerminal, "What about the ants?", 5)
			So(next, ShouldEqual, domain.StateTerminal)

			next = m.Advance(domain.StateTerminal, "Can I get you on the calendar for tomorrow?", 99)
			So(next, ShouldEqual, domain.StateTerminal)
		})

		Convey("The machine never returns to OPENING", func() {
			states := []domain.State{domain.StateDiscovery, domain.StateValue, domain.StateObjection, domain.StateClose}
			utterances := []string{
				"Hello again.",
				"What pests have you seen?",
				"That's more than I expected.",
				"Our treatment is pet safe.",
				"Can we schedule an appointment?",
			}
			for _, cur := range states {
				for _, u := range utterances {
					So(m.Advance(cur, u, 4), ShouldNotEqual, domain.StateOpening)
				}
			}
		})

		Convey("From CLOSE, a scheduling confirmation goes terminal", func() {
			next := m.Advance(domain.StateClose, "Does morning or afternoon work better?", 6)
			So(next, ShouldEqual, domain.StateTerminal)
		})

		Convey("From CLOSE, plain talk holds the close", func() {
			next := m.Advance(domain.StateClose, "It'll be quick, I promise.", 6)
			So(next, ShouldEqual, domain.StateClose)
		})

		Convey("From CLOSE, an objection reopens the objection state", func() {
			next := m.Advance(domain.StateClose, "I know the price feels like a lot.", 6)
			So(next, ShouldEqual, domain.StateObjection)
		})

		Convey("The close-turn threshold pushes toward CLOSE", func() {
			next := m.Advance(domain.StateDiscovery, "And how long have you lived here?", m.CloseTurn)
			So(next, ShouldEqual, domain.StateClose)
		})

		Convey("The max-turn threshold forces terminal", func() {
			next := m.Advance(domain.StateDiscovery, "Anything else I should know?", m.MaxTurns)
			So(next, ShouldEqual, domain.StateTerminal)
		})

		Convey("End forces terminal from every state", func() {
			for s := domain.StateOpening; s <= domain.StateTerminal; s++ {
				So(m.End(s), ShouldEqual, domain.StateTerminal)
			}
		})
	})
}
