package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/clipboost/clipboost-backend/internal/ledger"
	"github.com/clipboost/clipboost-backend/pkg/db/models"
	"github.com/clipboost/clipboost-backend/pkg/enums"
	"github.com/clipboost/clipboost-backend/pkg/logger"
	"github.com/clipboost/clipboost-backend/pkg/metrics"
)

// ledgerAuditSource is the slice of the ledger repository the audit reads.
type ledgerAuditSource interface {
	ListAccounts(ctx context.Context, accountType enums.AccountType) ([]uuid.UUID, error)
	SumsByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (ledger.AccountSums, error)
}

type balanceProjectionSource interface {
	Get(ctx context.Context, creatorID uuid.UUID) (*models.CreatorBalance, error)
}

type walletProjectionSource interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*models.TokenWallet, error)
}

type budgetProjectionSource interface {
	GetBudget(ctx context.Context, campaignID uuid.UUID) (*models.CampaignBudget, error)
}

// ReconciliationJob audits the mutable projections against the append-only
// ledger. Drift is reported, never repaired: a mismatch means a write skipped
// its transactional boundary and needs a human, not an automatic correction.
type ReconciliationJob struct {
	entries  ledgerAuditSource
	balances balanceProjectionSource
	wallets  walletProjectionSource
	budgets  budgetProjectionSource
	fin      *metrics.FinancialMetrics
	logg     *logger.Logger
	batch    int
}

// NewReconciliationJob wires the balance audit. batch caps how many accounts
// of each type one run inspects.
func NewReconciliationJob(
	entries ledgerAuditSource,
	balances balanceProjectionSource,
	wallets walletProjectionSource,
	budgets budgetProjectionSource,
	fin *metrics.FinancialMetrics,
	logg *logger.Logger,
	batch int,
) (*ReconciliationJob, error) {
	if entries == nil || balances == nil || wallets == nil || budgets == nil {
		return nil, fmt.Errorf("reconciliation job requires ledger, balance, wallet, and budget sources")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ReconciliationJob{
		entries:  entries,
		balances: balances,
		wallets:  wallets,
		budgets:  budgets,
		fin:      fin,
		logg:     logg,
		batch:    batch,
	}, nil
}

func (j *ReconciliationJob) Name() string { return "balance-reconciliation" }

// Run walks every ledger account type, derives balances from the entry sums,
// and compares them to the projection rows. Read errors accumulate so one bad
// account does not hide drift on the rest.
func (j *ReconciliationJob) Run(ctx context.Context) error {
	var errs error
	errs = multierr.Append(errs, j.reconcileCreatorBalances(ctx))
	errs = multierr.Append(errs, j.reconcileTokenWallets(ctx))
	errs = multierr.Append(errs, j.reconcileCampaignBudgets(ctx))
	return errs
}

func (j *ReconciliationJob) reconcileCreatorBalances(ctx context.Context) error {
	accounts, err := j.listAccounts(ctx, enums.AccountTypeCreatorBalance)
	if err != nil {
		return err
	}

	var errs error
	drifted := 0
	for _, accountID := range accounts {
		sums, err := j.entries.SumsByAccount(ctx, accountID, enums.AccountTypeCreatorBalance)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sum creator account %s: %w", accountID, err))
			continue
		}

		balance, err := j.balances.Get(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				drifted++
				j.reportDrift(ctx, enums.AccountTypeCreatorBalance, accountID, "projection row missing",
					map[string]int64{"derived_available_cents": sums.AvailableCents(), "derived_pending_cents": sums.PendingCents()})
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("load creator balance %s: %w", accountID, err))
			continue
		}

		if balance.AvailableCents != sums.AvailableCents() || balance.PendingCents != sums.PendingCents() {
			drifted++
			j.reportDrift(ctx, enums.AccountTypeCreatorBalance, accountID, "projection diverged from ledger", map[string]int64{
				"projected_available_cents": balance.AvailableCents,
				"derived_available_cents":   sums.AvailableCents(),
				"projected_pending_cents":   balance.PendingCents,
				"derived_pending_cents":     sums.PendingCents(),
			})
		}
	}

	j.fin.SetReconcileDrift(string(enums.AccountTypeCreatorBalance), float64(drifted))
	return errs
}

func (j *ReconciliationJob) reconcileTokenWallets(ctx context.Context) error {
	accounts, err := j.listAccounts(ctx, enums.AccountTypeTokenWallet)
	if err != nil {
		return err
	}

	var errs error
	drifted := 0
	for _, accountID := range accounts {
		sums, err := j.entries.SumsByAccount(ctx, accountID, enums.AccountTypeTokenWallet)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sum wallet account %s: %w", accountID, err))
			continue
		}

		wallet, err := j.wallets.GetWallet(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				drifted++
				j.reportDrift(ctx, enums.AccountTypeTokenWallet, accountID, "projection row missing",
					map[string]int64{"derived_balance_tokens": sums.Total()})
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("load wallet %s: %w", accountID, err))
			continue
		}

		if wallet.BalanceTokens != sums.Total() {
			drifted++
			j.reportDrift(ctx, enums.AccountTypeTokenWallet, accountID, "projection diverged from ledger", map[string]int64{
				"projected_balance_tokens": wallet.BalanceTokens,
				"derived_balance_tokens":   sums.Total(),
			})
		}
	}

	j.fin.SetReconcileDrift(string(enums.AccountTypeTokenWallet), float64(drifted))
	return errs
}

func (j *ReconciliationJob) reconcileCampaignBudgets(ctx context.Context) error {
	accounts, err := j.listAccounts(ctx, enums.AccountTypeCampaignBudget)
	if err != nil {
		return err
	}

	var errs error
	drifted := 0
	for _, accountID := range accounts {
		sums, err := j.entries.SumsByAccount(ctx, accountID, enums.AccountTypeCampaignBudget)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sum campaign account %s: %w", accountID, err))
			continue
		}
		// Spend entries are debits, so the signed total is the negated spend.
		derivedSpend := -sums.Total()

		budget, err := j.budgets.GetBudget(ctx, accountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				drifted++
				j.reportDrift(ctx, enums.AccountTypeCampaignBudget, accountID, "projection row missing",
					map[string]int64{"derived_spent_cents": derivedSpend})
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("load campaign budget %s: %w", accountID, err))
			continue
		}

		if budget.SpentBudgetCents != derivedSpend {
			drifted++
			j.reportDrift(ctx, enums.AccountTypeCampaignBudget, accountID, "projection diverged from ledger", map[string]int64{
				"projected_spent_cents": budget.SpentBudgetCents,
				"derived_spent_cents":   derivedSpend,
			})
		}
	}

	j.fin.SetReconcileDrift(string(enums.AccountTypeCampaignBudget), float64(drifted))
	return errs
}

func (j *ReconciliationJob) listAccounts(ctx context.Context, accountType enums.AccountType) ([]uuid.UUID, error) {
	accounts, err := j.entries.ListAccounts(ctx, accountType)
	if err != nil {
		return nil, fmt.Errorf("list %s accounts: %w", accountType, err)
	}
	if j.batch > 0 && len(accounts) > j.batch {
		accounts = accounts[:j.batch]
	}
	return accounts, nil
}

func (j *ReconciliationJob) reportDrift(ctx context.Context, accountType enums.AccountType, accountID uuid.UUID, reason string, amounts map[string]int64) {
	fields := map[string]any{
		"event":        "reconciliation.drift",
		"account_type": string(accountType),
		"account_id":   accountID.String(),
		"reason":       reason,
	}
	for key, value := range amounts {
		fields[key] = value
	}
	j.logg.Error(j.logg.WithFields(ctx, fields), "balance projection drifted from ledger", nil)
}
