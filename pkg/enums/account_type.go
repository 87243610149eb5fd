package enums

import "fmt"

// AccountType maps to the account_type_enum enum in Postgres. Every ledger
// entry is scoped to exactly one of these account families.
type AccountType string

const (
	AccountTypeCreatorBalance AccountType = "creator_balance"
	AccountTypeTokenWallet    AccountType = "token_wallet"
	AccountTypeCampaignBudget AccountType = "campaign_budget"
)

var validAccountTypes = []AccountType{
	AccountTypeCreatorBalance,
	AccountTypeTokenWallet,
	AccountTypeCampaignBudget,
}

// IsValid reports whether the value matches the canonical account type enum.
func (t AccountType) IsValid() bool {
	for _, candidate := range validAccountTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAccountType converts raw input into AccountType.
func ParseAccountType(value string) (AccountType, error) {
	for _, candidate := range validAccountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account type %q", value)
}
