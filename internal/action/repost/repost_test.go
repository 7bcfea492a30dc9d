package repost_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/bulkr/internal/action"
	"github.com/slok/bulkr/internal/action/repost"
	"github.com/slok/bulkr/internal/imageproxy"
	"github.com/slok/bulkr/internal/marketplace"
	"github.com/slok/bulkr/internal/marketplace/fake"
	"github.com/slok/bulkr/internal/marketplace/marketplacemock"
	"github.com/slok/bulkr/internal/model"
	"github.com/slok/bulkr/internal/pace"
)

var creds = model.Credentials{
	CSRFToken: "csrf",
	Domain:    "www.example.com",
	ProxyURL:  "http://proxy.local/",
}

type fetcherFunc func(ctx context.Context, proxyURL, originalURL string) ([]byte, error)

func (f fetcherFunc) FetchBytes(ctx context.Context, proxyURL, originalURL string) ([]byte, error) {
	return f(ctx, proxyURL, originalURL)
}

// imageFetcher returns the url as the image bytes.
var imageFetcher = fetcherFunc(func(_ context.Context, _, originalURL string) ([]byte, error) {
	return []byte(originalURL), nil
})

func sourceListing() *marketplace.Listing {
	return &marketplace.Listing{
		ID:       "1",
		Title:    "Jacket",
		Price:    marketplace.Price{Amount: 10},
		BrandDTO: &marketplace.Brand{Title: "Acme"},
		Photos: []marketplace.Photo{
			{ID: "a", FullSizeURL: "https://img/a"},
			{ID: "b", FullSizeURL: "https://img/b"},
			{ID: "c", FullSizeURL: "https://img/c"},
		},
	}
}

func draftListing(photoIDs ...string) *marketplace.Listing {
	l := &marketplace.Listing{ID: "900", Title: "Jacket", Price: marketplace.Price{Amount: 10}}
	for _, id := range photoIDs {
		l.Photos = append(l.Photos, marketplace.Photo{ID: marketplace.ID(id)})
	}
	return l
}

func photoIDsOf(d marketplace.Draft) []string {
	ids := []string{}
	for _, p := range d.AssignedPhotos {
		ids = append(ids, string(p.ID))
	}
	return ids
}

func newWorkflow(t *testing.T, client marketplace.Client, fetcher imageproxy.Fetcher, publishFirst bool) *repost.Workflow {
	w, err := repost.NewWorkflow(repost.WorkflowConfig{
		Client:              client,
		ImageFetcher:        fetcher,
		Pauser:              pace.Noop,
		PublishBeforeDelete: publishFirst,
		NewCorrelationToken: func() string { return "tok" },
	})
	require.NoError(t, err)
	return w
}

func TestNewWorkflow(t *testing.T) {
	tests := map[string]struct {
		cfg    repost.WorkflowConfig
		expErr bool
	}{
		"Missing client should fail.": {
			cfg:    repost.WorkflowConfig{ImageFetcher: imageFetcher},
			expErr: true,
		},

		"Missing image fetcher should fail.": {
			cfg:    repost.WorkflowConfig{Client: &marketplacemock.MockClient{}},
			expErr: true,
		},

		"Defaults should be used on optional settings.": {
			cfg: repost.WorkflowConfig{Client: &marketplacemock.MockClient{}, ImageFetcher: imageFetcher},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := repost.NewWorkflow(test.cfg)
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorkflowRun(t *testing.T) {
	published := json.RawMessage(`{"item":{"id":900}}`)

	tests := map[string]struct {
		publishFirst bool
		fetcher      imageproxy.Fetcher
		mock         func(m *marketplacemock.MockClient, calls *[]string)
		expCalls     []string
		expKind      model.ErrorKind
	}{
		"A repost should run every step in order.": {
			fetcher: imageFetcher,
			mock: func(m *marketplacemock.MockClient, calls *[]string) {
				record := func(name string) func(mock.Arguments) {
					return func(mock.Arguments) { *calls = append(*calls, name) }
				}
				m.On("GetListing", mock.Anything, creds, "1").Once().Run(record("get-source")).Return(sourceListing(), nil)
				m.On("UploadPhoto", mock.Anything, creds, []byte("https://img/a"), "tok").Once().Run(record("upload")).Return("p1", nil)
				m.On("UploadPhoto", mock.Anything, creds, []byte("https://img/b"), "tok").Once().Run(record("upload")).Return("p2", nil)
				m.On("UploadPhoto", mock.Anything, creds, []byte("https://img/c"), "tok").Once().Run(record("upload")).Return("p3", nil)
				m.On("CreateDraft", mock.Anything, creds, mock.MatchedBy(func(p marketplace.DraftPayload) bool {
					return assert.ObjectsAreEqual([]string{"p1", "p2", "p3"}, photoIDsOf(p.Draft)) && p.Draft.TempUUID == "tok" && p.Draft.ID == ""
				})).Once().Run(record("create-draft")).Return("900", nil)
				m.On("GetListing", mock.Anything, creds, "900").Once().Run(record("get-draft")).Return(draftListing("p1", "p2", "p3"), nil)
				m.On("DeleteItem", mock.Anything, creds, "1").Once().Run(record("delete")).Return(nil)
				m.On("CompleteDraft", mock.Anything, creds, "900", mock.MatchedBy(func(p marketplace.CompletionPayload) bool {
					return p.Draft.ID == "900" && assert.ObjectsAreEqual([]string{"p1", "p2", "p3"}, photoIDsOf(p.Draft))
				})).Once().Run(record("publish")).Return(published, nil)
			},
			expCalls: []string{"get-source", "upload", "upload", "upload", "create-draft", "get-draft", "delete", "publish"},
		},

		"Publishing before deleting should swap the last two steps.": {
			publishFirst: true,
			fetcher:      imageFetcher,
			mock: func(m *marketplacemock.MockClient, calls *[]string) {
				record := func(name string) func(mock.Arguments) {
					return func(mock.Arguments) { *calls = append(*calls, name) }
				}
				src := sourceListing()
				src.Photos = nil
				m.On("GetListing", mock.Anything, creds, "1").Once().Run(record("get-source")).Return(src, nil)
				m.On("CreateDraft", mock.Anything, creds, mock.Anything).Once().Run(record("create-draft")).Return("900", nil)
				m.On("GetListing", mock.Anything, creds, "900").Once().Run(record("get-draft")).Return(draftListing(), nil)
				m.On("CompleteDraft", mock.Anything, creds, "900", mock.Anything).Once().Run(record("publish")).Return(published, nil)
				m.On("DeleteItem", mock.Anything, creds, "1").Once().Run(record("delete")).Return(nil)
			},
			expCalls: []string{"get-source", "create-draft", "get-draft", "publish", "delete"},
		},

		"Failed image uploads should be skipped.": {
			fetcher: fetcherFunc(func(_ context.Context, _, u string) ([]byte, error) {
				if u == "https://img/a" {
					return nil, fmt.Errorf("boom: %w", model.ErrNetwork)
				}
				return []byte(u), nil
			}),
			mock: func(m *marketplacemock.MockClient, calls *[]string) {
				m.On("GetListing", mock.Anything, creds, "1").Once().Return(sourceListing(), nil)
				m.On("UploadPhoto", mock.Anything, creds, []byte("https://img/b"), "tok").Once().Return("", fmt.Errorf("status 500: %w", model.ErrNetwork))
				m.On("UploadPhoto", mock.Anything, creds, []byte("https://img/c"), "tok").Once().Return("p3", nil)
				m.On("CreateDraft", mock.Anything, creds, mock.MatchedBy(func(p marketplace.DraftPayload) bool {
					return assert.ObjectsAreEqual([]string{"p3"}, photoIDsOf(p.Draft))
				})).Once().Return("900", nil)
				m.On("GetListing", mock.Anything, creds, "900").Once().Return(draftListing("p3"), nil)
				m.On("DeleteItem", mock.Anything, creds, "1").Once().Return(nil)
				m.On("CompleteDraft", mock.Anything, creds, "900", mock.Anything).Once().Return(published, nil)
			},
		},

		"A rate limited image fetch should abort the repost.": {
			fetcher: fetcherFunc(func(context.Context, string, string) ([]byte, error) {
				return nil, fmt.Errorf("status 429: %w", model.ErrRateLimited)
			}),
			mock: func(m *marketplacemock.MockClient, calls *[]string) {
				m.On("GetListing", mock.Anything, creds, "1").Once().Return(sourceListing(), nil)
			},
			expKind: model.ErrorKindRateLimit,
		},

		"A rate limited image upload should abort the repost.": {
			fetcher: imageFetcher,
			mock: func(m *marketplacemock.MockClient, calls *[]string) {
				m.On("GetListing", mock.Anything, creds, "1").Once().Return(sourceListing(), nil)
				m.On("UploadPhoto", mock.Anything, creds, []byte("https://img/a"), "tok").Once().Return("p1", nil)
				m.On("UploadPhoto", mock.Anything, creds, []byte("https://img/b"), "tok").Once().Return("", fmt.Errorf("status 429: %w", model.ErrRateLimited))
			},
			expKind: model.ErrorKindRateLimit,
		},

		"A missing source listing should fail as a network failure.": {
			fetcher: imageFetcher,
			mock: func(m *marketplacemock.MockClient, calls *[]string) {
				m.On("GetListing", mock.Anything, creds, "1").Once().Return(nil, fmt.Errorf("status 404: %w: %w", model.ErrNotFound, model.ErrNetwork))
			},
			expKind: model.ErrorKindNetwork,
		},

		"A failed delete should not publish the draft.": {
			fetcher: imageFetcher,
			mock: func(m *marketplacemock.MockClient, calls *[]string) {
				src := sourceListing()
				src.Photos = nil
				m.On("GetListing", mock.Anything, creds, "1").Once().Return(src, nil)
				m.On("CreateDraft", mock.Anything, creds, mock.Anything).Once().Return("900", nil)
				m.On("GetListing", mock.Anything, creds, "900").Once().Return(draftListing(), nil)
				m.On("DeleteItem", mock.Anything, creds, "1").Once().Return(fmt.Errorf("status 500: %w", model.ErrNetwork))
			},
			expKind: model.ErrorKindNetwork,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			m := &marketplacemock.MockClient{}
			calls := []string{}
			test.mock(m, &calls)

			fractions := []float64{}
			w := newWorkflow(t, m, test.fetcher, test.publishFirst)
			got := w.Execute(context.Background(), action.Request{
				Item:        model.TargetItem{ID: "1"},
				Credentials: creds,
				OnProgress:  func(f float64) { fractions = append(fractions, f) },
			})

			m.AssertExpectations(t)
			if test.expKind != model.ErrorKindNone {
				assert.False(got.Success)
				assert.Equal(test.expKind, got.Error)
				return
			}

			assert.True(got.Success)
			assert.NoError(got.Err)
			if test.expCalls != nil {
				assert.Equal(test.expCalls, calls)
			}
			assert.Equal([]float64{1.0 / 8, 2.0 / 8, 3.0 / 8, 4.0 / 8, 5.0 / 8, 6.0 / 8, 7.0 / 8, 8.0 / 8}, fractions)
		})
	}
}

func TestWorkflowInvalidProxy(t *testing.T) {
	m := &marketplacemock.MockClient{}
	w := newWorkflow(t, m, imageFetcher, false)

	bad := creds
	bad.ProxyURL = "ftp://proxy"
	got := w.Execute(context.Background(), action.Request{Item: model.TargetItem{ID: "1"}, Credentials: bad})

	assert.Equal(t, model.ErrorKindValidation, got.Error)
	m.AssertNotCalled(t, "GetListing", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkflowStop(t *testing.T) {
	t.Run("A stop requested before the source is touched should cancel the repost.", func(t *testing.T) {
		m := &marketplacemock.MockClient{}
		src := sourceListing()
		src.Photos = nil
		m.On("GetListing", mock.Anything, creds, "1").Once().Return(src, nil)

		w := newWorkflow(t, m, imageFetcher, false)
		got := w.Execute(context.Background(), action.Request{
			Item:        model.TargetItem{ID: "1"},
			Credentials: creds,
			Stopped:     func() bool { return true },
		})

		assert.Equal(t, model.ErrorKindCancelled, got.Error)
		m.AssertExpectations(t)
		m.AssertNotCalled(t, "CreateDraft", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("A stop requested after deleting the source should still publish.", func(t *testing.T) {
		stopped := false
		m := &marketplacemock.MockClient{}
		src := sourceListing()
		src.Photos = nil
		m.On("GetListing", mock.Anything, creds, "1").Once().Return(src, nil)
		m.On("CreateDraft", mock.Anything, creds, mock.Anything).Once().Return("900", nil)
		m.On("GetListing", mock.Anything, creds, "900").Once().Return(draftListing(), nil)
		m.On("DeleteItem", mock.Anything, creds, "1").Once().Run(func(mock.Arguments) { stopped = true }).Return(nil)
		m.On("CompleteDraft", mock.Anything, creds, "900", mock.Anything).Once().Return(json.RawMessage(`{}`), nil)

		w := newWorkflow(t, m, imageFetcher, false)
		got := w.Execute(context.Background(), action.Request{
			Item:        model.TargetItem{ID: "1"},
			Credentials: creds,
			Stopped:     func() bool { return stopped },
		})

		assert.True(t, got.Success)
		m.AssertExpectations(t)
	})
}

func TestWorkflowRateLimitAtAnyStep(t *testing.T) {
	// A repost of a listing with 3 photos does 8 remote calls, the first one can't be limited.
	for after := 1; after < 8; after++ {
		t.Run(fmt.Sprintf("Rate limit after %d calls should be propagated.", after), func(t *testing.T) {
			require := require.New(t)

			client, err := fake.NewClient(fake.ClientConfig{Users: 1, ItemsPerUser: 1, RateLimitAfter: after})
			require.NoError(err)
			id := client.AddListing(client.UserIDs()[0])

			w := newWorkflow(t, client, imageproxy.StaticFetcher("jpeg"), false)
			got := w.Execute(context.Background(), action.Request{Item: model.TargetItem{ID: id}, Credentials: creds})

			assert.Equal(t, model.ErrorKindRateLimit, got.Error)
		})
	}
}

func TestWorkflowFakeMarketplace(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	client, err := fake.NewClient(fake.ClientConfig{Users: 1, ItemsPerUser: 1})
	require.NoError(err)
	userID := client.UserIDs()[0]

	before, err := client.ListUserItems(ctx, creds, userID)
	require.NoError(err)
	require.Len(before, 1)

	w := newWorkflow(t, client, imageproxy.StaticFetcher("jpeg"), false)
	res, err := w.Run(ctx, action.Request{Item: before[0].TargetItem(), Credentials: creds})
	require.NoError(err)
	assert.NotEmpty(t, res)

	after, err := client.ListUserItems(ctx, creds, userID)
	require.NoError(err)
	require.Len(after, 1)
	assert.NotEqual(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[0].Title, after[0].Title)
}
