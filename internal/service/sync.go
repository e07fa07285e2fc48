package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gyftr-sheet-sync/internal/config"
	"gyftr-sheet-sync/internal/mailbox"
	"gyftr-sheet-sync/internal/metrics"
	"gyftr-sheet-sync/internal/model"
	"gyftr-sheet-sync/internal/parser"
)

// HistoryCursorKey is the config-store key holding the last acknowledged
// change-log position.
const HistoryCursorKey = "LAST_GMAIL_HISTORY_ID"

// SourceBackfill is the execution-source label of the administrative
// backfill; vouchers from it are appended instead of inserted at the top.
const SourceBackfill = "backfill"

// Run modes reported in the result summary.
const (
	ModeBatch   = "batch"
	ModeHistory = "history"
)

const createdAtLayout = "2006-01-02 15:04:05"

// VoucherStore commits extracted vouchers to the persistent sheet and
// returns the number of rows actually written after deduplication.
type VoucherStore interface {
	Commit(ctx context.Context, vouchers []*model.Voucher, insertAtTop bool) (int, error)
}

// CursorStore persists the sync cursor between runs.
type CursorStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Recorder receives finished run summaries, e.g. for the audit log.
type Recorder interface {
	Record(source string, result *model.RunResult)
}

// SyncService orchestrates one processing run: it resolves the message
// set (change-log cursor or fallback search), drives extraction, and
// commits merged rows. Both entry modes are idempotent and safe to invoke
// repeatedly with overlapping inputs.
type SyncService struct {
	gateway mailbox.Gateway
	store   VoucherStore
	cursor  CursorStore
	cfg     config.SyncConfig
	metrics *metrics.Metrics
	audit   Recorder
	loc     *time.Location
}

// NewSyncService creates the engine. metrics and audit may be nil.
func NewSyncService(gateway mailbox.Gateway, store VoucherStore, cursor CursorStore, cfg config.SyncConfig, m *metrics.Metrics, audit Recorder) (*SyncService, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return &SyncService{
		gateway: gateway,
		store:   store,
		cursor:  cursor,
		cfg:     cfg,
		metrics: m,
		audit:   audit,
		loc:     loc,
	}, nil
}

// BatchOptions configures one bounded batch scan.
type BatchOptions struct {
	// Source labels who triggered the run; it is written to the sheet's
	// Added By column and selects the ordering policy.
	Source string
	// MaxResults bounds one page; 0 uses the configured batch size.
	MaxResults int64
	// IncludeRead drops the unread-only restriction from the query.
	IncludeRead bool
	// PageToken continues a previous scan. Pagination is caller-driven.
	PageToken string
}

// ProcessNewEmails runs one bounded batch scan over the trusted sender
// (Mode A). Every scanned message is marked read afterwards, found
// vouchers or not; that is what bounds future unread-only scans.
func (s *SyncService) ProcessNewEmails(ctx context.Context, opts BatchOptions) *model.RunResult {
	start := time.Now()
	result := model.NewRunResult(ModeBatch)
	defer s.finish(opts.Source, result, start)

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.cfg.BatchSize
	}

	query := "from:" + s.cfg.TrustedSender
	if !opts.IncludeRead {
		// Without the unread restriction an ungated scan would revisit
		// old unparseable emails forever.
		query += " is:unread"
	}

	logrus.Infof("Fetching voucher emails with query: %q", query)
	refs, nextPageToken, err := s.gateway.ListMessages(ctx, query, maxResults, opts.PageToken)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("listing messages: %v", err))
		return result
	}

	result.EmailsChecked = len(refs)
	result.NextPageToken = nextPageToken
	logrus.Infof("Found %d voucher emails to scan", len(refs))
	if len(refs) == 0 {
		return result
	}

	now := time.Now().In(s.loc).Format(createdAtLayout)
	var all []*model.Voucher
	for _, ref := range refs {
		vouchers, err := s.processMessage(ctx, ref.ID, opts.Source, now, false)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("processing message %s: %v", ref.ID, err))
			continue
		}
		result.VouchersFound += len(vouchers)
		all = append(all, vouchers...)
	}

	s.commit(ctx, all, opts.Source != SourceBackfill, result)
	return result
}

// ProcessFromHistory runs one change-log-driven incremental scan (Mode B).
// The incoming position is persisted even when zero messages are found,
// so a run with nothing to do still advances state. A stale stored cursor
// triggers the bounded fallback search instead of failing the run.
func (s *SyncService) ProcessFromHistory(ctx context.Context, incomingHistoryID, source string) *model.RunResult {
	start := time.Now()
	result := model.NewRunResult(ModeHistory)
	defer s.finish(source, result, start)

	stored, hasCursor, err := s.cursor.Get(ctx, HistoryCursorKey)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("reading history cursor: %v", err))
		hasCursor = false
	}

	var ids []string
	if hasCursor && stored != "" {
		ids, err = s.gateway.ListChangesSince(ctx, stored)
		if err != nil {
			if errors.Is(err, mailbox.ErrCursorExpired) {
				logrus.Warnf("History cursor %s expired, falling back to windowed search", stored)
			} else {
				logrus.Warnf("History listing since %s failed (%v), falling back to windowed search", stored, err)
			}
			ids, err = s.fallbackSearch(ctx)
		}
	} else {
		logrus.Info("No stored history cursor, using windowed search")
		ids, err = s.fallbackSearch(ctx)
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("resolving message set: %v", err))
		ids = nil
	}

	// Advance the cursor to the incoming position unconditionally, found
	// messages or not; otherwise a window with nothing parseable would be
	// re-examined on every notification.
	if incomingHistoryID != "" {
		if err := s.cursor.Set(ctx, HistoryCursorKey, incomingHistoryID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persisting history cursor: %v", err))
		}
	}

	ids = dedupeIDs(ids)
	if s.cfg.HistoryMaxMessages > 0 && len(ids) > s.cfg.HistoryMaxMessages {
		logrus.Warnf("Capping history run from %d to %d messages", len(ids), s.cfg.HistoryMaxMessages)
		ids = ids[:s.cfg.HistoryMaxMessages]
	}
	result.EmailsChecked = len(ids)

	now := time.Now().In(s.loc).Format(createdAtLayout)
	var all []*model.Voucher
	for _, id := range ids {
		vouchers, err := s.processMessage(ctx, id, source, now, true)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("processing message %s: %v", id, err))
			continue
		}
		result.VouchersFound += len(vouchers)
		all = append(all, vouchers...)
	}

	s.commit(ctx, all, true, result)
	return result
}

// processMessage fetches one message, extracts and enriches its vouchers,
// and marks it read. With verifySender, messages from anyone but the
// trusted sender are ignored; change-log events are not sender-filtered.
func (s *SyncService) processMessage(ctx context.Context, id, source, now string, verifySender bool) ([]*model.Voucher, error) {
	msg, err := s.gateway.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	if verifySender && !strings.EqualFold(msg.FromAddress(), s.cfg.TrustedSender) {
		logrus.Debugf("Ignoring message %s from untrusted sender %q", id, msg.FromAddress())
		return nil, nil
	}

	logrus.Infof("Scanning email: %s | %s | %.50s", id, msg.Date, msg.Subject)

	var vouchers []*model.Voucher
	if html := HTMLBody(msg.Body); html != "" {
		vouchers = parser.ExtractVouchers(html)
	}

	for _, voucher := range vouchers {
		voucher.EmailDate = msg.Date
		voucher.MessageID = id
		voucher.AddedBy = source
		voucher.CreatedAt = now
	}

	// Mark read regardless of outcome so unread-only scans never revisit
	// this message. Failures here must not fail the message.
	if err := s.gateway.MarkRead(ctx, id); err != nil {
		logrus.Warnf("Failed to mark message %s as read: %v", id, err)
	}

	return vouchers, nil
}

// fallbackSearch is the bounded time-windowed recovery query used when no
// usable change-log position exists.
func (s *SyncService) fallbackSearch(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("from:%s newer_than:%dd", s.cfg.TrustedSender, s.cfg.FallbackWindowDays)
	logrus.Infof("Fallback search with query: %q", query)

	refs, _, err := s.gateway.ListMessages(ctx, query, s.cfg.BatchSize, "")
	if err != nil {
		return nil, fmt.Errorf("fallback search: %w", err)
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

func (s *SyncService) commit(ctx context.Context, vouchers []*model.Voucher, insertAtTop bool, result *model.RunResult) {
	if len(vouchers) == 0 {
		return
	}
	added, err := s.store.Commit(ctx, vouchers, insertAtTop)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("committing rows: %v", err))
		return
	}
	result.RowsAdded = added
}

func (s *SyncService) finish(source string, result *model.RunResult, start time.Time) {
	if s.metrics != nil {
		s.metrics.RunCount.Inc()
		s.metrics.EmailsChecked.Add(float64(result.EmailsChecked))
		s.metrics.VouchersFound.Add(float64(result.VouchersFound))
		s.metrics.RowsAdded.Add(float64(result.RowsAdded))
		s.metrics.RunErrors.Add(float64(len(result.Errors)))
		s.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
	}
	if s.audit != nil {
		s.audit.Record(source, result)
	}
	logrus.Infof("Run complete: mode=%s source=%s checked=%d found=%d added=%d errors=%d in %v",
		result.Mode, source, result.EmailsChecked, result.VouchersFound, result.RowsAdded, len(result.Errors), time.Since(start))
}

// dedupeIDs removes duplicate message IDs while preserving discovery
// order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
