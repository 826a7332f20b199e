package state

import (
	"math/big"
	"testing"

	"creditpool/storage"
)

func TestBankBalanceDefaultsToZero(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	balance, err := mgr.BankBalance(testAddress(0x01))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", balance)
	}
	checkpoints, err := mgr.BankCheckpoints(testAddress(0x01))
	if err != nil || len(checkpoints) != 0 {
		t.Fatalf("expected no checkpoints: %v %v", checkpoints, err)
	}
}

func TestBankCheckpointsCollapsePerHeight(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	addr := testAddress(0x02)
	writes := []struct {
		height  uint64
		balance int64
	}{
		{10, 100},
		{10, 150},
		{20, 50},
	}
	for _, w := range writes {
		if err := mgr.PutBankBalance(addr, big.NewInt(w.balance), w.height); err != nil {
			t.Fatalf("put balance: %v", err)
		}
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	balance, _ := mgr.BankBalance(addr)
	if balance.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected balance %s", balance)
	}
	checkpoints, err := mgr.BankCheckpoints(addr)
	if err != nil {
		t.Fatalf("checkpoints: %v", err)
	}
	if len(checkpoints) != 2 {
		t.Fatalf("expected two checkpoints, got %d", len(checkpoints))
	}
	if checkpoints[0].Height != 10 || checkpoints[0].Balance.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("unexpected first checkpoint %+v", checkpoints[0])
	}
	if checkpoints[1].Height != 20 || checkpoints[1].Balance.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected second checkpoint %+v", checkpoints[1])
	}

	if err := mgr.PutBankBalance(addr, big.NewInt(1), 5); err != nil {
		t.Fatalf("put stale height: %v", err)
	}
	checkpoints, _ = mgr.BankCheckpoints(addr)
	if len(checkpoints) != 2 || checkpoints[1].Height != 20 || checkpoints[1].Balance.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected stale height to collapse into height 20, got %+v", checkpoints)
	}
	if err := mgr.PutBankBalance(addr, big.NewInt(-1), 30); err == nil {
		t.Fatalf("expected negative balance to fail")
	}
}

func TestBankCheckpointsCompactOutsideRetention(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	addr := testAddress(0x03)
	step := CheckpointRetentionBlocks / 4
	var height uint64
	for i := 0; i < 40; i++ {
		height += step
		if err := mgr.PutBankBalance(addr, big.NewInt(int64(i)), height); err != nil {
			t.Fatalf("put balance %d: %v", i, err)
		}
		checkpoints, err := mgr.BankCheckpoints(addr)
		if err != nil {
			t.Fatalf("checkpoints: %v", err)
		}
		if len(checkpoints) > 6 {
			t.Fatalf("write %d: %d checkpoints retained", i, len(checkpoints))
		}
	}
	checkpoints, _ := mgr.BankCheckpoints(addr)
	cutoff := height - CheckpointRetentionBlocks
	if checkpoints[0].Height > cutoff {
		t.Fatalf("oldest checkpoint %d is inside the window starting at %d", checkpoints[0].Height, cutoff)
	}
	if len(checkpoints) > 1 && checkpoints[1].Height <= cutoff {
		t.Fatalf("superseded checkpoint %d kept before cutoff %d", checkpoints[1].Height, cutoff)
	}
	last := checkpoints[len(checkpoints)-1]
	if last.Height != height || last.Balance.Cmp(big.NewInt(39)) != 0 {
		t.Fatalf("unexpected newest checkpoint %+v", last)
	}
}

func TestBankSupply(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.PutBankSupply(big.NewInt(1_000)); err != nil {
		t.Fatalf("put supply: %v", err)
	}
	supply, err := mgr.BankSupply()
	if err != nil || supply.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("unexpected supply %v err=%v", supply, err)
	}
}
