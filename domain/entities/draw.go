package entities

import (
	"time"

	"prizepool/domain/fixedpoint"
)

// NoAccount is the reserved account id meaning "no account": the winner
// of a draw nobody participated in, or an unset beneficiary.
const NoAccount = int64(0)

// Draw represents one cycle of the lottery. A draw is created OPEN,
// becomes COMMITTED when the next draw opens, and REWARDED when the
// reward step finalizes it. Once rewarded it is immutable.
type Draw struct {
	ID             int64               `db:"id"`
	FeeFraction    fixedpoint.Fraction `db:"fee_fraction"`    // Captured from next-draw settings at open
	FeeBeneficiary int64               `db:"fee_beneficiary"` // Captured from next-draw settings at open
	OpenedAtBlock  int64               `db:"opened_at_block"`
	Entropy        [32]byte            `db:"entropy"` // Zero until rewarded
	Winner         int64               `db:"winner"`  // NoAccount until rewarded, and for winnerless draws
	NetWinnings    int64               `db:"net_winnings"`
	Fee            int64               `db:"fee"`
	CreatedAt      time.Time           `db:"created_at"`
	RewardedAt     *time.Time          `db:"rewarded_at"` // NULL until rewarded
}

// IsRewarded reports whether the draw has been finalized. The entropy
// field doubles as the rewarded flag: it is zero until the reward step
// stores the hashed seed.
func (d *Draw) IsRewarded() bool {
	return d.Entropy != [32]byte{}
}

// Finalize records the reward outcome and makes the draw immutable.
func (d *Draw) Finalize(entropy [32]byte, winner, netWinnings, fee int64) {
	d.Entropy = entropy
	d.Winner = winner
	d.NetWinnings = netWinnings
	d.Fee = fee
	now := time.Now().UTC()
	d.RewardedAt = &now
}

// HasWinner reports whether an eligible participant won this draw.
func (d *Draw) HasWinner() bool {
	return d.IsRewarded() && d.Winner != NoAccount
}
