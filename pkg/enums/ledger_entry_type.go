package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type_enum enum in Postgres.
//
// Entry amounts are signed deltas. For creator balance accounts, earning,
// adjustment, withdrawal_reserve and withdrawal_return entries move the
// available component; withdrawal_payout records funds leaving the reserved
// (pending) component. Campaign budget accounts only see campaign_spend.
// Token wallet accounts use the token_* entry types.
type LedgerEntryType string

const (
	LedgerEntryTypeEarning           LedgerEntryType = "earning"
	LedgerEntryTypeAdjustment        LedgerEntryType = "adjustment"
	LedgerEntryTypeWithdrawalReserve LedgerEntryType = "withdrawal_reserve"
	LedgerEntryTypeWithdrawalReturn  LedgerEntryType = "withdrawal_return"
	LedgerEntryTypeWithdrawalPayout  LedgerEntryType = "withdrawal_payout"
	LedgerEntryTypeCampaignSpend     LedgerEntryType = "campaign_spend"
	LedgerEntryTypeTokenGrant        LedgerEntryType = "token_grant"
	LedgerEntryTypeTokenPurchase     LedgerEntryType = "token_purchase"
	LedgerEntryTypeTokenBonus        LedgerEntryType = "token_bonus"
	LedgerEntryTypeTokenRefund       LedgerEntryType = "token_refund"
	LedgerEntryTypeTokenConsumption  LedgerEntryType = "token_consumption"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeEarning,
	LedgerEntryTypeAdjustment,
	LedgerEntryTypeWithdrawalReserve,
	LedgerEntryTypeWithdrawalReturn,
	LedgerEntryTypeWithdrawalPayout,
	LedgerEntryTypeCampaignSpend,
	LedgerEntryTypeTokenGrant,
	LedgerEntryTypeTokenPurchase,
	LedgerEntryTypeTokenBonus,
	LedgerEntryTypeTokenRefund,
	LedgerEntryTypeTokenConsumption,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// AffectsAvailable reports whether, for creator balance accounts, the entry
// amount is a delta to the available component. withdrawal_payout entries move
// the reserved component instead.
func (t LedgerEntryType) AffectsAvailable() bool {
	switch t {
	case LedgerEntryTypeEarning, LedgerEntryTypeAdjustment,
		LedgerEntryTypeWithdrawalReserve, LedgerEntryTypeWithdrawalReturn:
		return true
	default:
		return false
	}
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
