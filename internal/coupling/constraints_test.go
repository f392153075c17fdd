package coupling

import (
	"testing"

	"github.com/talgya/animus/internal/state"
)

func TestConstraintsNoveltyFloorHolds(t *testing.T) {
	depleted := state.DefaultVitals()
	depleted.Resources = [state.NumResources]float64{0, 0, 0}
	depleted.Stress = [state.NumStressChannels]float64{1, 1}
	depleted.Gains[state.GainExplore] = state.GainMin

	con := ConstraintsFrom(depleted)
	if con.Novelty != NoveltyFloor {
		t.Fatalf("novelty budget = %v for a depleted organism, want floor %v", con.Novelty, NoveltyFloor)
	}
}

func TestConstraintsWithinBounds(t *testing.T) {
	extremes := []state.Vitals{
		state.DefaultVitals(),
		{
			Resources: [state.NumResources]float64{1, 1, 1},
			Stress:    [state.NumStressChannels]float64{0, 0},
			Gains:     [state.NumGains]float64{state.GainMax, state.GainMax, state.GainMax},
		},
		{
			Resources: [state.NumResources]float64{0, 0, 0},
			Stress:    [state.NumStressChannels]float64{1, 1},
			Gains:     [state.NumGains]float64{state.GainMin, state.GainMin, state.GainMin},
		},
	}
	for i, v := range extremes {
		con := ConstraintsFrom(v)
		if con.Novelty < NoveltyFloor || con.Novelty > NoveltyCap {
			t.Fatalf("case %d: novelty %v outside [%v, %v]", i, con.Novelty, NoveltyFloor, NoveltyCap)
		}
		if con.Risk < 0 || con.Risk > RiskCap {
			t.Fatalf("case %d: risk %v outside [0, %v]", i, con.Risk, RiskCap)
		}
		if con.Coherence < CoherenceFloor || con.Coherence > CoherenceCap {
			t.Fatalf("case %d: coherence %v outside [%v, %v]", i, con.Coherence, CoherenceFloor, CoherenceCap)
		}
	}
}

func TestConstraintsRespondToStress(t *testing.T) {
	calm := state.DefaultVitals()
	calm.Stress = [state.NumStressChannels]float64{0, 0}
	strained := calm
	strained.Stress = [state.NumStressChannels]float64{0.9, 0.9}

	calmCon := ConstraintsFrom(calm)
	strainedCon := ConstraintsFrom(strained)

	if strainedCon.Novelty >= calmCon.Novelty {
		t.Fatalf("stress did not suppress exploration: %v vs %v", strainedCon.Novelty, calmCon.Novelty)
	}
	if strainedCon.Coherence <= calmCon.Coherence {
		t.Fatalf("stress did not raise coherence pull: %v vs %v", strainedCon.Coherence, calmCon.Coherence)
	}
}

func TestConstraintsBudgetScarcestResource(t *testing.T) {
	rich := state.DefaultVitals()
	rich.Resources = [state.NumResources]float64{1, 1, 1}
	rich.Stress = [state.NumStressChannels]float64{0, 0}

	starved := rich
	starved.Resources[state.ResAttention] = 0.05

	if rc, sc := ConstraintsFrom(rich), ConstraintsFrom(starved); sc.Novelty >= rc.Novelty {
		t.Fatalf("scarce resource did not cut the novelty budget: %v vs %v", sc.Novelty, rc.Novelty)
	}
}
