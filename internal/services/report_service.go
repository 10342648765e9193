package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"noctambul/internal/amqp"
	"noctambul/internal/core"
	"noctambul/internal/mail"
	"noctambul/internal/pdf"
	"noctambul/internal/report"
	"noctambul/internal/storage"
)

// Mail subjects, part of the delivery contract.
const (
	SubjectManual  = "Rapports (Stock et Activités) - Le Noctambul"
	SubjectKiosque = "Rapport Kiosques - Le Noctambul"

	autoSubjectFormat = "Rapports Automatiques du %s - Le Noctambul"
)

// AutoSubject builds the subject line of a scheduled report mail.
func AutoSubject(at time.Time) string {
	return fmt.Sprintf(autoSubjectFormat, at.Format("02/01/2006 15:04"))
}

// ReportService wires aggregation, rendering and delivery. When an
// AMQP client is available report requests are queued for the worker;
// otherwise they run inline.
type ReportService struct {
	storage    *storage.SQLiteRepository
	aggregator *report.Aggregator
	renderer   *pdf.Renderer
	dispatcher *mail.Dispatcher
	amqpClient *amqp.Client
}

func NewReportService(
	storage *storage.SQLiteRepository,
	renderer *pdf.Renderer,
	dispatcher *mail.Dispatcher,
	amqpClient *amqp.Client,
) *ReportService {
	return &ReportService{
		storage:    storage,
		aggregator: report.NewAggregator(storage),
		renderer:   renderer,
		dispatcher: dispatcher,
		amqpClient: amqpClient,
	}
}

// section renders one table snapshot, mapping the no-data sentinel to
// the explicit empty-section placeholder.
func (s *ReportService) section(ctx context.Context, table report.Table, title string, f report.Filter) (pdf.Section, error) {
	ds, err := s.aggregator.Snapshot(ctx, table, f)
	if errors.Is(err, report.ErrNoData) {
		return pdf.Section{Label: title, Data: nil}, nil
	}
	if err != nil {
		return pdf.Section{}, err
	}
	return pdf.Section{Label: title, Data: ds}, nil
}

// GenerateStandardSet writes the stock and journal PDFs and returns
// their paths.
func (s *ReportService) GenerateStandardSet(ctx context.Context, titleSuffix string) ([]string, error) {
	stockTitle := "Rapport de Stock" + titleSuffix
	journalTitle := "Journal des Activites" + titleSuffix

	stockSection, err := s.section(ctx, report.TableStock, stockTitle, report.Filter{})
	if err != nil {
		return nil, fmt.Errorf("aggregate stock: %w", err)
	}
	stockPath, err := s.renderer.WriteFile(stockTitle, []pdf.Section{stockSection})
	if err != nil {
		return nil, fmt.Errorf("render stock report: %w", err)
	}

	journalSection, err := s.section(ctx, report.TableJournal, journalTitle, report.Filter{})
	if err != nil {
		return nil, fmt.Errorf("aggregate journal: %w", err)
	}
	journalPath, err := s.renderer.WriteFile(journalTitle, []pdf.Section{journalSection})
	if err != nil {
		return nil, fmt.Errorf("render journal report: %w", err)
	}

	return []string{stockPath, journalPath}, nil
}

// GenerateKioskReport writes the grouped kiosk report and returns its
// path.
func (s *ReportService) GenerateKioskReport(ctx context.Context, f report.Filter) (string, error) {
	section, err := s.section(ctx, report.TablePoints, "Rapport des Kiosques", f)
	if err != nil {
		return "", fmt.Errorf("aggregate kiosk points: %w", err)
	}
	path, err := s.renderer.WriteFile("Rapport des Kiosques", []pdf.Section{section})
	if err != nil {
		return "", fmt.Errorf("render kiosk report: %w", err)
	}
	return path, nil
}

// SendReports mails the given files to the current recipient set. An
// empty recipient set is a warning no-op.
func (s *ReportService) SendReports(ctx context.Context, subject string, paths []string) error {
	recipients, err := s.storage.ListRecipients(ctx)
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}
	if len(recipients) == 0 {
		slog.WarnContext(ctx, "No recipients configured, skipping report mail", "subject", subject)
		return mail.ErrNoRecipients
	}
	if s.dispatcher == nil {
		slog.WarnContext(ctx, "Mail dispatcher not configured, skipping report mail", "subject", subject)
		return nil
	}
	return s.dispatcher.Send(ctx, subject, recipients, paths)
}

// BundleStandardSet renders the stock and journal reports and zips
// them, returning the archive path.
func (s *ReportService) BundleStandardSet(ctx context.Context) (string, error) {
	paths, err := s.GenerateStandardSet(ctx, "")
	if err != nil {
		return "", err
	}
	zipPath, err := s.renderer.Bundle("Rapports_Le_Noctambul", paths)
	if err != nil {
		return "", fmt.Errorf("bundle reports: %w", err)
	}
	return zipPath, nil
}

// RequestReports queues a report job for the worker, or runs it inline
// when no queue is configured.
func (s *ReportService) RequestReports(ctx context.Context, kind string) error {
	return s.Request(ctx, amqp.NewReportJobMessage(kind))
}

// Request queues the given report job, or runs it inline when no queue
// is configured.
func (s *ReportService) Request(ctx context.Context, msg *amqp.ReportJobMessage) error {
	if s.amqpClient != nil {
		if err := s.amqpClient.PublishReportJob(ctx, msg); err != nil {
			return fmt.Errorf("publish report job: %w", err)
		}
		return nil
	}

	slog.WarnContext(ctx, "AMQP client not available, generating report inline", "kind", msg.Kind)
	return s.HandleJob(ctx, msg)
}

// HandleJob executes one report job: generate, then deliver. Used by
// the report worker as the queue handler.
func (s *ReportService) HandleJob(ctx context.Context, msg *amqp.ReportJobMessage) error {
	switch msg.Kind {
	case amqp.JobManual:
		paths, err := s.GenerateStandardSet(ctx, "")
		if err != nil {
			return err
		}
		err = s.SendReports(ctx, SubjectManual, paths)
		if errors.Is(err, mail.ErrNoRecipients) {
			return nil
		}
		return err
	case amqp.JobKiosques:
		f, err := jobFilter(msg)
		if err != nil {
			return err
		}
		path, err := s.GenerateKioskReport(ctx, f)
		if err != nil {
			return err
		}
		err = s.SendReports(ctx, SubjectKiosque, []string{path})
		if errors.Is(err, mail.ErrNoRecipients) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown report job kind %q", msg.Kind)
	}
}

// RunScheduled generates and mails the automatic report set. The
// caller has already claimed the hour window.
func (s *ReportService) RunScheduled(ctx context.Context, at time.Time) error {
	paths, err := s.GenerateStandardSet(ctx, " Automatique")
	if err != nil {
		return err
	}
	err = s.SendReports(ctx, AutoSubject(at), paths)
	if errors.Is(err, mail.ErrNoRecipients) {
		return nil
	}
	return err
}

func jobFilter(msg *amqp.ReportJobMessage) (report.Filter, error) {
	var f report.Filter
	if msg.From != "" {
		d, err := core.ParseDate(msg.From)
		if err != nil {
			return f, fmt.Errorf("job from date: %w", err)
		}
		f.From = d
	}
	if msg.To != "" {
		d, err := core.ParseDate(msg.To)
		if err != nil {
			return f, fmt.Errorf("job to date: %w", err)
		}
		f.To = d
	}
	return f, nil
}
