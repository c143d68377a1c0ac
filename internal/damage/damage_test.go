package damage

import "testing"

func TestFalloffEndpoints(t *testing.T) {
	if got := Falloff(40, 0, 10); got != 40 {
		t.Fatalf("expected full damage at center, got %v", got)
	}
	if got := Falloff(40, 10, 10); got != 20 {
		t.Fatalf("expected half damage at the rim, got %v", got)
	}
	if got := Falloff(40, 10.01, 10); got != 0 {
		t.Fatalf("expected zero damage past the rim, got %v", got)
	}
}

func TestFalloffRoundsToInteger(t *testing.T) {
	got := Falloff(33, 4, 10)
	if got != float64(int(got)) {
		t.Fatalf("expected integral damage, got %v", got)
	}
}

func TestFalloffDegenerateRadius(t *testing.T) {
	if got := Falloff(40, 0, 0); got != 40 {
		t.Fatalf("expected direct hit damage with zero radius, got %v", got)
	}
	if got := Falloff(40, 1, 0); got != 0 {
		t.Fatalf("expected zero damage away from a zero-radius blast, got %v", got)
	}
}

func TestResolveShieldAbsorbsFirst(t *testing.T) {
	pools := Pools{Shield: 30, Armor: 50, Health: 100}
	breakdown := Resolve(&pools, 20)
	if breakdown.ShieldDamage != 20 || breakdown.ArmorDamage != 0 || breakdown.HealthDamage != 0 {
		t.Fatalf("unexpected breakdown %+v", breakdown)
	}
	if pools.Shield != 10 || pools.Armor != 50 || pools.Health != 100 {
		t.Fatalf("unexpected pools %+v", pools)
	}
}

func TestResolveSplitsPastShield(t *testing.T) {
	pools := Pools{Shield: 10, Armor: 50, Health: 100}
	breakdown := Resolve(&pools, 30)
	if breakdown.ShieldDamage != 10 {
		t.Fatalf("expected shield to absorb 10, got %v", breakdown.ShieldDamage)
	}
	// Remaining 20 splits evenly between armor and health.
	if breakdown.ArmorDamage != 10 || breakdown.HealthDamage != 10 {
		t.Fatalf("unexpected split %+v", breakdown)
	}
	if pools.Armor != 40 || pools.Health != 90 {
		t.Fatalf("unexpected pools %+v", pools)
	}
}

func TestResolveArmorExhausts(t *testing.T) {
	pools := Pools{Shield: 0, Armor: 5, Health: 100}
	breakdown := Resolve(&pools, 30)
	if breakdown.ArmorDamage != 5 {
		t.Fatalf("expected armor to exhaust at 5, got %v", breakdown.ArmorDamage)
	}
	if breakdown.HealthDamage != 25 {
		t.Fatalf("expected health to take the remainder, got %v", breakdown.HealthDamage)
	}
	if pools.Armor != 0 || pools.Health != 75 {
		t.Fatalf("unexpected pools %+v", pools)
	}
}

func TestResolveDestroys(t *testing.T) {
	pools := Pools{Health: 10}
	breakdown := Resolve(&pools, 25)
	if !breakdown.Destroyed {
		t.Fatalf("expected destruction, got %+v", breakdown)
	}
	if pools.Health != 0 {
		t.Fatalf("expected health clamped to zero, got %v", pools.Health)
	}
}

func TestResolveIgnoresNonPositive(t *testing.T) {
	pools := Pools{Shield: 10, Armor: 10, Health: 10}
	breakdown := Resolve(&pools, 0)
	if breakdown != (Breakdown{}) {
		t.Fatalf("expected no-op breakdown, got %+v", breakdown)
	}
	if pools.Shield != 10 || pools.Armor != 10 || pools.Health != 10 {
		t.Fatalf("unexpected pools %+v", pools)
	}
}
