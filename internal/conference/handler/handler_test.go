package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"

	"custodia/internal/backend/docstore"
	"custodia/internal/conference/models"
	"custodia/internal/conference/store"
	"custodia/internal/draft"
	"custodia/internal/platform/logger"
	"custodia/pkg/testutil"
)

type failingDrafts struct{ draft.Store }

func (failingDrafts) Load(context.Context, string) (*draft.Draft, error) {
	return nil, errors.New("redis: connection refused")
}

type ConferenceHandlerSuite struct {
	suite.Suite
	store  *store.Store
	drafts *draft.MemoryStore
	router chi.Router
	now    time.Time
}

func TestConferenceHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConferenceHandlerSuite))
}

func (s *ConferenceHandlerSuite) SetupTest() {
	s.now = time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	s.store = store.New(docstore.NewMemory(docstore.WithClock(func() time.Time {
		s.now = s.now.Add(time.Minute)
		return s.now
	})))
	s.drafts = draft.NewMemory()
	s.router = chi.NewRouter()
	New(s.store, s.drafts, logger.Discard()).Register(s.router)
}

func (s *ConferenceHandlerSuite) do(req *http.Request, userID string) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithUserID(req, userID))
}

func (s *ConferenceHandlerSuite) record(userID string, checked, expected int) string {
	id, err := s.store.Create(context.Background(), models.NewConference{
		UserID: userID, TotalChecked: checked, TotalExpected: expected,
	})
	s.Require().NoError(err)
	return id
}

func (s *ConferenceHandlerSuite) TestCreateForCurrentUser() {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/conferencias", map[string]any{
		"observacao": "sem ocorrências", "unidadeId": "f1", "totalConferidos": 40, "totalEsperados": 42,
	}), "u1")
	s.Require().Equal(http.StatusCreated, rr.Code)

	list, err := s.store.ListForUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(40, list[0].TotalChecked)
	s.Equal(2, list[0].Missing())
	s.Equal("sem ocorrências", list[0].Note)
}

func (s *ConferenceHandlerSuite) TestCreateRejectsNegativeTotals() {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/conferencias", map[string]any{
		"totalConferidos": -1,
	}), "u1")
	testutil.AssertErrorResponse(s.T(), rr, http.StatusBadRequest, "validation_error", "TotalChecked must be at least 0")
}

func (s *ConferenceHandlerSuite) TestListNewestFirst() {
	older := s.record("u1", 1, 1)
	newer := s.record("u1", 2, 2)
	s.record("u2", 3, 3)

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/conferencias", nil), "u1")
	s.Require().Equal(http.StatusOK, rr.Code)
	list := testutil.DecodeJSON[[]models.Conference](s.T(), rr)
	s.Require().Len(list, 2)
	s.Equal(newer, list[0].ID)
	s.Equal(older, list[1].ID)
}

func (s *ConferenceHandlerSuite) TestDeleteAndClear() {
	one := s.record("u1", 1, 1)
	s.record("u1", 2, 2)
	s.record("u2", 3, 3)

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/conferencias/"+one, nil), "u1")
	s.Equal(http.StatusNoContent, rr.Code)
	list, err := s.store.ListForUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Len(list, 1)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/conferencias", nil), "u1")
	s.Equal(http.StatusNoContent, rr.Code)
	list, err = s.store.ListForUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Empty(list)

	others, err := s.store.ListForUser(context.Background(), "u2")
	s.Require().NoError(err)
	s.Len(others, 1)
}

func (s *ConferenceHandlerSuite) TestDeleteOnlyOwnRecords() {
	owned := s.record("u1", 4, 5)

	s.Run("another user cannot delete the record", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/conferencias/"+owned, nil), "u2")
		testutil.AssertErrorResponse(s.T(), rr, http.StatusNotFound, "not_found", "Conferência não encontrada")

		list, err := s.store.ListForUser(context.Background(), "u1")
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(owned, list[0].ID)
	})

	s.Run("unknown id is not found", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/conferencias/missing", nil), "u1")
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("the owner can", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/conferencias/"+owned, nil), "u1")
		s.Equal(http.StatusNoContent, rr.Code)
	})
}

func (s *ConferenceHandlerSuite) TestHistoryDownload() {
	s.record("u1", 9, 10)

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/conferencias/relatorio.xlsx", nil), "u1")
	s.Require().Equal(http.StatusOK, rr.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	s.Require().NoError(err)
	defer f.Close()
	rows, err := f.GetRows("Conferências")
	s.Require().NoError(err)
	s.Len(rows, 2)
}

func (s *ConferenceHandlerSuite) TestDraftLifecycle() {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/conferencias/rascunho", nil), "u1")
	testutil.AssertErrorResponse(s.T(), rr, http.StatusNotFound, "not_found", "Nenhum rascunho em andamento")

	body := draft.Draft{
		Pavilions: []draft.Pavilion{
			{Name: "A", Cells: []draft.Cell{{ID: "1", Expected: 4, Checked: 4}, {ID: "2", Expected: 3, Checked: 1}}},
		},
		Note: "faltam dois na cela 2",
	}
	rr = s.do(testutil.WithTime(testutil.NewJSONRequest(s.T(), http.MethodPut, "/conferencias/rascunho", body), s.now), "u1")
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/conferencias/rascunho", nil), "u1")
	s.Require().Equal(http.StatusOK, rr.Code)
	saved := testutil.DecodeJSON[draft.Draft](s.T(), rr)
	s.Equal(body.Pavilions, saved.Pavilions)
	s.Equal(s.now, saved.UpdatedAt)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/conferencias/rascunho/finalizar", map[string]string{
		"unidadeId": "f1",
	}), "u1")
	s.Require().Equal(http.StatusCreated, rr.Code)

	list, err := s.store.ListForUser(context.Background(), "u1")
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(7, list[0].TotalExpected)
	s.Equal(5, list[0].TotalChecked)
	s.Equal("f1", list[0].FacilityID)
	s.Equal("faltam dois na cela 2", list[0].Note)

	d, err := s.drafts.Load(context.Background(), "u1")
	s.Require().NoError(err)
	s.Nil(d, "finalize discards the draft")
}

func (s *ConferenceHandlerSuite) TestSaveDraftValidatesCells() {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, "/conferencias/rascunho", map[string]any{
		"pavilions": []map[string]any{{"name": "A", "cells": []map[string]any{{"id": "", "expected": 1}}}},
	}), "u1")
	testutil.AssertErrorResponse(s.T(), rr, http.StatusBadRequest, "validation_error", "ID is required")
}

func (s *ConferenceHandlerSuite) TestDiscardDraft() {
	s.Require().NoError(s.drafts.Save(context.Background(), "u1", draft.Draft{Note: "x"}))

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/conferencias/rascunho", nil), "u1")
	s.Equal(http.StatusNoContent, rr.Code)

	d, err := s.drafts.Load(context.Background(), "u1")
	s.Require().NoError(err)
	s.Nil(d)
}

func TestDraftBackendFailure(t *testing.T) {
	router := chi.NewRouter()
	New(store.New(docstore.NewMemory()), failingDrafts{}, logger.Discard()).Register(router)

	rr := testutil.DoRequest(router, testutil.WithUserID(
		testutil.NewJSONRequest(t, http.MethodGet, "/conferencias/rascunho", nil), "u1"))
	testutil.AssertErrorResponse(t, rr, http.StatusInternalServerError, "query_error", "Erro ao buscar rascunho")
}
