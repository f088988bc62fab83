package insoc

import (
	"bytes"
	"reflect"
	"testing"
)

func TestSaveLoad(t *testing.T) {
	profile := NewSoilProfile(23.4, 60)
	climate := uniformClimate(20, 200, 100)
	initial := CarbonPools{0.1, 5, 0.5, 20}
	inputs := []AnnualInput{{Crop: 1, Tree: 0.5}, {Crop: 1.5, Tree: 0}}

	m, err := IntegrateForward(profile, climate, FullCover(), DefaultRateConstants(), initial, inputs, nil)
	if err != nil {
		t.Fatal(err)
	}

	buf := bytes.NewBuffer([]byte{})
	if err := Save(buf)(m); err != nil {
		t.Fatal(err)
	}

	m2 := &InSOC{
		InitFuncs: []ModelManipulator{
			Load(buf),
		},
	}
	if err := m2.Init(); err != nil {
		t.Fatal(err)
	}

	if m2.Pools != m.Pools {
		t.Errorf("pools=%v (they should equal %v)", m2.Pools, m.Pools)
	}
	if m2.Year != m.Year {
		t.Errorf("year=%d (it should equal %d)", m2.Year, m.Year)
	}
	if m2.RMF != m.RMF {
		t.Errorf("rmf=%g (it should equal %g)", m2.RMF, m.RMF)
	}
	if !reflect.DeepEqual(m2.trajectory, m.trajectory) {
		t.Errorf("trajectory=%v (it should equal %v)", m2.trajectory, m.trajectory)
	}
	if !reflect.DeepEqual(m2.Inputs, m.Inputs) {
		t.Errorf("inputs=%v (they should equal %v)", m2.Inputs, m.Inputs)
	}
	if *m2.Profile != *m.Profile {
		t.Errorf("profile=%v (it should equal %v)", m2.Profile, m.Profile)
	}
	if *m2.Climate != *m.Climate {
		t.Errorf("climate differs after the round trip")
	}

	// A loaded state can keep running.
	m2.Inputs = append(m2.Inputs, AnnualInput{Crop: 1})
	if err := AdvanceYear(DefaultSubsteps)(m2); err != nil {
		t.Fatal(err)
	}
	if m2.Year != m.Year+1 {
		t.Errorf("year=%d after resuming (it should equal %d)", m2.Year, m.Year+1)
	}
}
