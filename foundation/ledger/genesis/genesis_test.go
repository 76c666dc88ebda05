package genesis_test

import (
	"testing"

	"github.com/veralabs/ledger/foundation/ledger/genesis"
)

func Test_RewardSchedule(t *testing.T) {
	g := genesis.Genesis{
		ChainID:         1,
		InitialReward:   1000,
		HalvingInterval: 2,
		LastBlockReward: 10,
	}

	table := []struct {
		height uint64
		reward uint64
	}{
		{height: 0, reward: 1000},
		{height: 1, reward: 1000},
		{height: 2, reward: 500},
		{height: 3, reward: 500},
		{height: 4, reward: 250},
		{height: 6, reward: 125},
		{height: 10, reward: 31},
		{height: 11, reward: 0},
		{height: 5000, reward: 0},
	}

	for _, tst := range table {
		reward := g.Reward(tst.height)
		if reward.Uint64() != tst.reward {
			t.Logf("got: %s", reward)
			t.Logf("exp: %d", tst.reward)
			t.Fatalf("Should get the right reward at height %d.", tst.height)
		}
	}
}

func Test_RewardDeepHalving(t *testing.T) {
	g := genesis.Genesis{
		ChainID:         1,
		InitialReward:   1 << 62,
		HalvingInterval: 1,
		LastBlockReward: 1000,
	}

	if reward := g.Reward(100); reward.Sign() != 0 {
		t.Fatalf("Should shift the reward to zero after enough halvings, got %s.", reward)
	}

	if reward := g.Reward(62); reward.Uint64() != 1 {
		t.Fatalf("Should still mint one unit at the 62nd halving, got %s.", reward)
	}
}

func Test_Validate(t *testing.T) {
	g := genesis.Genesis{
		ChainID:         1,
		Difficulty:      2,
		InitialReward:   1000,
		HalvingInterval: 100,
		LastBlockReward: 10000,
	}

	if err := g.Validate(); err != nil {
		t.Fatalf("Should accept a minimal configuration: %s", err)
	}

	bad := g
	bad.HalvingInterval = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("Should reject a zero halving interval.")
	}

	bad = g
	bad.Difficulty = 40
	if err := bad.Validate(); err == nil {
		t.Fatalf("Should reject an unreachable difficulty.")
	}

	bad = g
	bad.Admins = []string{"not an address"}
	if err := bad.Validate(); err == nil {
		t.Fatalf("Should reject an admin that resolves under no scheme.")
	}

	bad = g
	bad.Balances = map[string]uint64{"also not an address": 10}
	if err := bad.Validate(); err == nil {
		t.Fatalf("Should reject a seeded balance on a malformed address.")
	}
}

func Test_IsAdmin(t *testing.T) {
	g := genesis.Genesis{
		Admins: []string{"0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"},
	}

	if !g.IsAdmin("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4") {
		t.Fatalf("Should report a listed address as admin.")
	}
	if g.IsAdmin("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32") {
		t.Fatalf("Should not report an unlisted address as admin.")
	}
}
