package service

import (
	"context"

	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// ExportSession renders the session's transcript as seen by its participant.
func (s *Service) ExportSession(ctx context.Context, sessionID string) (*domain.Document, error) {
	sess, err := s.refreshPair(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.exportPair(sess.Pair, sess.Participant)
}

// ExportPair renders a pair's transcript with the first participant on the left.
func (s *Service) ExportPair(ctx context.Context, pairID string) (*domain.Document, error) {
	pair, err := s.store.GetPair(ctx, pairID)
	if err != nil {
		return nil, errors.Wrapf(err, "get pair %s", pairID)
	}
	return s.exportPair(*pair, pair.ParticipantA)
}

func (s *Service) exportPair(pair domain.Pair, viewer string) (*domain.Document, error) {
	raw, err := s.transcripts.Lines(pair.Key())
	if err != nil {
		return nil, errors.Wrap(err, "read transcript")
	}
	doc, err := s.exporter.RenderPDF(pair, raw, viewer)
	if err != nil {
		return nil, errors.Wrapf(err, "export %s", pair.Name())
	}
	log.Infof("exported %s (%d lines)", doc.Name, len(doc.Lines))
	return doc, nil
}

// ListExports returns the exported PDF names.
func (s *Service) ListExports() ([]string, error) {
	names, err := s.exporter.List()
	return names, errors.Wrap(err, "list exports")
}

// ListBundles returns the zip bundle names.
func (s *Service) ListBundles() ([]string, error) {
	names, err := s.exporter.Bundles()
	return names, errors.Wrap(err, "list bundles")
}

// OpenExport resolves an export or bundle name to its path.
func (s *Service) OpenExport(name string) (string, error) {
	path, err := s.exporter.Open(name)
	return path, errors.Wrap(err, "open export")
}

// BundleExports zips all exported PDFs.
func (s *Service) BundleExports() (*domain.BatchResult, error) {
	result, err := s.exporter.Bundle()
	if err != nil {
		return nil, errors.Wrap(err, "bundle exports")
	}
	logBatch("bundle", result)
	return result, nil
}

// ArchiveExports moves all exported PDFs to the archive directory.
func (s *Service) ArchiveExports() (*domain.BatchResult, error) {
	result, err := s.exporter.Archive()
	if err != nil {
		return nil, errors.Wrap(err, "archive exports")
	}
	logBatch("archive", result)
	return result, nil
}

func logBatch(op string, result *domain.BatchResult) {
	log.Infof("%s: %d processed, %d failed", op, len(result.Processed), len(result.Failed))
	for _, f := range result.Failed {
		log.Warnf("%s: %s: %s", op, f.Name, f.Error)
	}
}
