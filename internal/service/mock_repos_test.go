package service

import (
	"context"
	"sort"

	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
)

// ── Mock SectionRepository ──

type mockSectionRepo struct {
	terms      map[model.TermIdentifier][]model.Section
	replaceErr error
	listErr    error
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{terms: make(map[model.TermIdentifier][]model.Section)}
}

func (m *mockSectionRepo) ReplaceByTerm(_ context.Context, term model.TermIdentifier, sections []model.Section) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.terms[term] = append([]model.Section(nil), sections...)
	return nil
}

func (m *mockSectionRepo) List(_ context.Context, term *model.TermIdentifier) ([]model.Section, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if term != nil {
		return m.terms[*term], nil
	}
	keys := make([]string, 0, len(m.terms))
	byKey := make(map[string]model.TermIdentifier, len(m.terms))
	for t := range m.terms {
		keys = append(keys, t.String())
		byKey[t.String()] = t
	}
	sort.Strings(keys)
	var result []model.Section
	for _, k := range keys {
		result = append(result, m.terms[byKey[k]]...)
	}
	return result, nil
}

func (m *mockSectionRepo) CountByTerm(_ context.Context, term model.TermIdentifier) (int64, error) {
	return int64(len(m.terms[term])), nil
}

// ── Mock Notifier ──

type mockNotifier struct {
	published []model.TermIdentifier
	err       error
}

func (m *mockNotifier) PublishSectionsUpdated(_ context.Context, term model.TermIdentifier, _ int) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, term)
	return nil
}
