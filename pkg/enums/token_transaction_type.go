package enums

import "fmt"

// TokenTransactionType maps to the token_transaction_type_enum enum in Postgres.
type TokenTransactionType string

const (
	TokenTransactionTypeFreeGrant       TokenTransactionType = "free_grant"
	TokenTransactionTypePurchase        TokenTransactionType = "purchase"
	TokenTransactionTypePurchasePending TokenTransactionType = "purchase_pending"
	TokenTransactionTypeBonus           TokenTransactionType = "bonus"
	TokenTransactionTypeRefund          TokenTransactionType = "refund"
	TokenTransactionTypeConsumption     TokenTransactionType = "consumption"
)

var validTokenTransactionTypes = []TokenTransactionType{
	TokenTransactionTypeFreeGrant,
	TokenTransactionTypePurchase,
	TokenTransactionTypePurchasePending,
	TokenTransactionTypeBonus,
	TokenTransactionTypeRefund,
	TokenTransactionTypeConsumption,
}

// IsValid reports whether the value matches the canonical token transaction enum.
func (t TokenTransactionType) IsValid() bool {
	for _, candidate := range validTokenTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// CountsTowardBalance reports whether the transaction's signed token amount is
// part of the wallet balance. purchase_pending rows are bookkeeping only; the
// wallet is credited when the purchase settles.
func (t TokenTransactionType) CountsTowardBalance() bool {
	return t != TokenTransactionTypePurchasePending
}

// ParseTokenTransactionType converts raw input into TokenTransactionType.
func ParseTokenTransactionType(value string) (TokenTransactionType, error) {
	for _, candidate := range validTokenTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid token transaction type %q", value)
}
