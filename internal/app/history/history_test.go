package history_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/bulkr/internal/app/history"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/storage"
	"github.com/slok/bulkr/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	_, err := history.NewService(history.ServiceConfig{})
	assert.Error(t, err)
}

func TestServiceList(t *testing.T) {
	reports := []model.RunReport{{ID: "b"}, {ID: "a"}}

	tests := map[string]struct {
		req        history.ListRequest
		mock       func(m *storagemock.MockRunRepository)
		expReports []model.RunReport
		expErr     bool
	}{
		"Listing should pass the filters to the repository": {
			req: history.ListRequest{Action: model.ActionKindLike, Limit: 2},
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRunReports", mock.Anything, storage.ListRunReportsOpts{Action: model.ActionKindLike, Limit: 2}).Once().Return(reports, nil)
			},
			expReports: reports,
		},

		"An unknown action should fail": {
			req:    history.ListRequest{Action: "share"},
			mock:   func(m *storagemock.MockRunRepository) {},
			expErr: true,
		},

		"A negative limit should fail": {
			req:    history.ListRequest{Limit: -1},
			mock:   func(m *storagemock.MockRunRepository) {},
			expErr: true,
		},

		"A repository error should fail": {
			req: history.ListRequest{},
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRunReports", mock.Anything, storage.ListRunReportsOpts{}).Once().Return(nil, fmt.Errorf("boom"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := &storagemock.MockRunRepository{}
			test.mock(repo)

			svc, err := history.NewService(history.ServiceConfig{Repository: repo})
			require.NoError(t, err)

			got, err := svc.List(context.Background(), test.req)
			repo.AssertExpectations(t)
			if test.expErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expReports, got)
		})
	}
}

func TestServiceGet(t *testing.T) {
	tests := map[string]struct {
		id        string
		mock      func(m *storagemock.MockRunRepository)
		expReport *model.RunReport
		expErr    error
	}{
		"Getting an existing report should return it": {
			id: " 01HX ",
			mock: func(m *storagemock.MockRunRepository) {
				m.On("GetRunReport", mock.Anything, "01HX").Once().Return(&model.RunReport{ID: "01HX"}, nil)
			},
			expReport: &model.RunReport{ID: "01HX"},
		},

		"Getting a missing report should fail with not found": {
			id: "01HX",
			mock: func(m *storagemock.MockRunRepository) {
				m.On("GetRunReport", mock.Anything, "01HX").Once().Return(nil, fmt.Errorf("run report: %w", model.ErrNotFound))
			},
			expErr: model.ErrNotFound,
		},

		"An empty id should fail": {
			id:     " ",
			mock:   func(m *storagemock.MockRunRepository) {},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := &storagemock.MockRunRepository{}
			test.mock(repo)

			svc, err := history.NewService(history.ServiceConfig{Repository: repo})
			require.NoError(t, err)

			got, err := svc.Get(context.Background(), test.id)
			repo.AssertExpectations(t)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expReport, got)
		})
	}
}
