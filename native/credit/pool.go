package credit

import (
	"math/big"

	"creditpool/core/events"
	"creditpool/crypto"
	nativecommon "creditpool/native/common"
)

// Lend deposits amount of the pooled asset from caller into custody and mints
// pool units 1:1 with the deposit. Any previous lock is restarted from the
// current height.
func (e *Engine) Lend(caller crypto.Address, amount *big.Int) error {
	return e.mutate("lend", func(now uint64) ([]events.Event, error) {
		cfg, err := e.loadConfig()
		if err != nil {
			return nil, err
		}
		if err := nativecommon.Guard(cfg, moduleName); err != nil {
			return nil, err
		}
		if amount == nil || amount.Cmp(MinDeposit) < 0 {
			return nil, ErrAmountTooSmall
		}
		minted := new(big.Int).Set(amount)
		position, err := e.lenderPosition(caller)
		if err != nil {
			return nil, err
		}
		if err := e.transferAsset(amount, caller, e.poolAddress); err != nil {
			return nil, err
		}

		position.Balance = new(big.Int).Add(position.Balance, minted)
		position.LockedAt = now
		position.UnlocksAt = addBlocks(now, DaysToBlocks(cfg.LockDurationDays))
		cfg.TotalPoolUnits = new(big.Int).Add(cfg.TotalPoolUnits, minted)
		if err := e.state.PutCreditLenderPosition(caller, position); err != nil {
			return nil, err
		}
		if err := e.state.PutCreditConfig(cfg); err != nil {
			return nil, err
		}
		return []events.Event{events.CreditDeposit{
			Lender:    caller,
			Amount:    new(big.Int).Set(amount),
			Units:     minted,
			LockedAt:  position.LockedAt,
			UnlocksAt: position.UnlocksAt,
		}}, nil
	})
}

// Withdraw redeems amount of the pooled asset from caller's position. The
// position must hold units, amount must not exceed its redeemable share and its
// lock must have expired.
func (e *Engine) Withdraw(caller crypto.Address, amount *big.Int) error {
	return e.mutate("withdraw", func(now uint64) ([]events.Event, error) {
		if amount == nil || amount.Sign() <= 0 {
			return nil, ErrAmountTooSmall
		}
		cfg, err := e.loadConfig()
		if err != nil {
			return nil, err
		}
		position, err := e.lenderPosition(caller)
		if err != nil {
			return nil, err
		}
		custody, err := e.custodyBalance()
		if err != nil {
			return nil, err
		}
		effect, err := ComputeWithdrawalEffect(position, cfg.TotalPoolUnits, custody, amount)
		if err != nil {
			return nil, err
		}
		if now < position.UnlocksAt {
			return nil, ErrFundsLocked
		}
		if err := e.transferAsset(amount, e.poolAddress, caller); err != nil {
			return nil, err
		}

		if effect.Position == nil {
			err = e.state.DeleteCreditLenderPosition(caller)
		} else {
			err = e.state.PutCreditLenderPosition(caller, effect.Position)
		}
		if err != nil {
			return nil, err
		}
		cfg.TotalPoolUnits = effect.TotalUnits
		if err := e.state.PutCreditConfig(cfg); err != nil {
			return nil, err
		}
		return []events.Event{events.CreditWithdraw{
			Lender:      caller,
			Amount:      new(big.Int).Set(amount),
			BurnedUnits: effect.BurnedUnits,
			Closed:      effect.Position == nil,
		}}, nil
	})
}

// LenderInfo returns the lender's units, redeemable amount and lock window.
// Accounts without a position report zero values.
func (e *Engine) LenderInfo(account crypto.Address) (LenderInfo, error) {
	var info LenderInfo
	err := e.read(func(now uint64) error {
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		position, err := e.lenderPosition(account)
		if err != nil {
			return err
		}
		custody, err := e.custodyBalance()
		if err != nil {
			return err
		}
		info = LenderInfo{
			Balance:    new(big.Int).Set(position.Balance),
			Redeemable: Redeemable(position.Balance, cfg.TotalPoolUnits, custody),
			LockedAt:   position.LockedAt,
			UnlocksAt:  position.UnlocksAt,
		}
		if position.Balance.Sign() > 0 && now > position.LockedAt {
			info.SecondsInPool = blocksToSeconds(now - position.LockedAt)
		}
		return nil
	})
	return info, err
}

// PoolInfo summarises the pool's parameters and accounting.
func (e *Engine) PoolInfo() (PoolInfo, error) {
	var info PoolInfo
	err := e.read(func(uint64) error {
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		custody, err := e.custodyBalance()
		if err != nil {
			return err
		}
		lenders, err := e.state.CreditLenders()
		if err != nil {
			return err
		}
		info = PoolInfo{
			LockDurationDays:    cfg.LockDurationDays,
			LockDurationBlocks:  DaysToBlocks(cfg.LockDurationDays),
			LoanDurationDays:    cfg.LoanDurationDays,
			LoanDurationBlocks:  DaysToBlocks(cfg.LoanDurationDays),
			InterestRatePercent: cfg.InterestRatePercent,
			TotalPoolUnits:      new(big.Int).Set(cfg.TotalPoolUnits),
			CustodyBalance:      new(big.Int).Set(custody),
			Lenders:             len(lenders),
			Paused:              cfg.Paused,
		}
		return nil
	})
	return info, err
}

// WithdrawalLimit reports the amount account may withdraw once unlocked.
func (e *Engine) WithdrawalLimit(account crypto.Address) (WithdrawalLimit, error) {
	var limit WithdrawalLimit
	err := e.read(func(now uint64) error {
		cfg, err := e.loadConfig()
		if err != nil {
			return err
		}
		position, err := e.lenderPosition(account)
		if err != nil {
			return err
		}
		custody, err := e.custodyBalance()
		if err != nil {
			return err
		}
		limit = WithdrawalLimit{
			Redeemable: Redeemable(position.Balance, cfg.TotalPoolUnits, custody),
			UnlocksAt:  position.UnlocksAt,
			Unlocked:   position.Balance.Sign() > 0 && now >= position.UnlocksAt,
		}
		return nil
	})
	return limit, err
}
