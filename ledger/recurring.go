/*
recurring.go - Recurring transaction materialization

PURPOSE:
  Turns transactions flagged is_recurring into a series. A recurring
  transaction acts as its own template: when the next occurrence date
  (transaction date plus frequency) has passed, a copy is recorded at
  that date through the normal recording path, so balances and the
  chronological index stay correct.

GROUPING:
  Occurrences of one series share account, type, category, and
  description. The latest dated member of a group is the template for
  the next occurrence, so repeated runs advance the series instead of
  duplicating it.

LIMITS:
  Transfers never materialize; a recurring transfer would spawn paired
  legs on every run and orphan them on deletion. A single run catches up
  at most maxOccurrencesPerRun dates per series.

SEE ALSO:
  - transactions.go: RecordTransaction, the path every occurrence takes
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/finance-ledger/entity"
)

const maxOccurrencesPerRun = 24

// MaterializeRecurring records every occurrence of the user's recurring
// transactions that is due on or before asOf (inclusive, ISO-8601 date).
// Series whose account has gone inactive are skipped; their errors are
// joined into the returned error alongside the occurrences that did
// commit.
func (l *Ledger) MaterializeRecurring(ctx context.Context, userID, asOf string) ([]entity.Transaction, error) {
	items, err := l.store.QueryPrefix(ctx, entity.UserPK(userID), entity.TransactionPrefix())
	if err != nil {
		return nil, storeErr("transaction", userID, err)
	}
	txns := entity.DecodeTransactions(items)

	// Latest member of each series wins the template role.
	templates := map[string]entity.Transaction{}
	for _, t := range txns {
		if !t.IsRecurring || t.RecurringFrequency == "" || t.Type == entity.TxTransfer {
			continue
		}
		key := t.AccountID + "|" + string(t.Type) + "|" + string(t.Category) + "|" + t.Description
		if cur, ok := templates[key]; !ok || t.TransactionDate > cur.TransactionDate {
			templates[key] = t
		}
	}

	var created []entity.Transaction
	var errs []error
	for _, tmpl := range templates {
		due, err := nextOccurrence(tmpl.TransactionDate, tmpl.RecurringFrequency)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for n := 0; due <= asOf && n < maxOccurrencesPerRun; n++ {
			t, err := l.RecordTransaction(ctx, userID, RecordTransactionInput{
				AccountID:          tmpl.AccountID,
				Amount:             tmpl.Amount,
				Description:        tmpl.Description,
				Type:               tmpl.Type,
				Category:           tmpl.Category,
				TransactionDate:    due,
				Notes:              tmpl.Notes,
				Location:           tmpl.Location,
				Tags:               tmpl.Tags,
				IsRecurring:        true,
				RecurringFrequency: tmpl.RecurringFrequency,
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("series %q: %w", tmpl.Description, err))
				break
			}
			created = append(created, t)
			if due, err = nextOccurrence(due, tmpl.RecurringFrequency); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return created, errors.Join(errs...)
}

// nextOccurrence advances an ISO date by one frequency step. Monthly and
// yearly steps follow time.AddDate, so Jan 31 + 1 month lands on Mar 2
// or 3 rather than failing.
func nextOccurrence(date string, freq entity.RecurringFrequency) (string, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("%w: bad recurring date %q", ErrPreconditionFailed, date)
	}
	switch freq {
	case entity.FreqDaily:
		d = d.AddDate(0, 0, 1)
	case entity.FreqWeekly:
		d = d.AddDate(0, 0, 7)
	case entity.FreqMonthly:
		d = d.AddDate(0, 1, 0)
	case entity.FreqYearly:
		d = d.AddDate(1, 0, 0)
	default:
		return "", fmt.Errorf("%w: unknown frequency %q", ErrPreconditionFailed, freq)
	}
	return d.Format("2006-01-02"), nil
}
