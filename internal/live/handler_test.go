package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/HerbHall/artiscatalog/internal/catalog"
	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/metrics"
	"github.com/HerbHall/artiscatalog/internal/server"
	"github.com/HerbHall/artiscatalog/internal/services"
	"github.com/HerbHall/artiscatalog/internal/testutil"
	pkgcatalog "github.com/HerbHall/artiscatalog/pkg/catalog"
)

func newLiveServer(t *testing.T, prefs services.PreferencesRepository, debounce time.Duration) (*httptest.Server, *Module) {
	t.Helper()
	m := New(catalog.NewEngine(pkgcatalog.NewCatalog()), prefs, metrics.New(prometheus.NewRegistry()))
	v := viper.New()
	v.Set("debounce", debounce)
	require.NoError(t, m.Init(v, zaptest.NewLogger(t)))
	require.NoError(t, m.Start(context.Background()))

	mux := http.NewServeMux()
	for _, r := range m.Routes() {
		mux.HandleFunc(r.Method+" /api/v1/live"+r.Path, r.Handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		_ = m.Stop()
	})
	return srv, m
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, query string, header http.Header) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/live/ws"
	if query != "" {
		u += "?" + query
	}
	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	return conn
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	var m Message
	require.NoError(t, wsjson.Read(ctx, conn, &m))
	return m
}

func TestHandleWS_Session(t *testing.T) {
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })

	srv, _ := newLiveServer(t, nil, 20*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, srv, "", nil)
	defer conn.CloseNow()

	initial := read(t, ctx, conn)
	assert.Equal(t, MessageUpdate, initial.Type)
	assert.Equal(t, 20, initial.Count)

	require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: IntentToggleCategory, Value: []byte(`"Acrylic"`)}))
	m := read(t, ctx, conn)
	assert.Equal(t, []string{"3210", "3211"}, productCodes(m.Products))

	require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: IntentSetSortBy, Value: []byte(`"price"`)}))
	m = read(t, ctx, conn)
	assert.Equal(t, MessageError, m.Type)
	assert.Equal(t, IntentSetSortBy, m.Intent)

	for _, q := range []string{"o", "oa", "oak"} {
		require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: IntentKeystroke, Value: []byte(`"` + q + `"`)}))
	}
	m = read(t, ctx, conn)
	assert.Equal(t, "oak", m.State.SearchQuery)
	assert.Empty(t, m.Products, "no acrylic product matches oak")

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestHandleWS_URLParamsSeedState(t *testing.T) {
	srv, _ := newLiveServer(t, nil, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, srv, "q=oak&catalog=Artis+1MM", nil)
	defer conn.CloseNow()

	m := read(t, ctx, conn)
	assert.Equal(t, "oak", m.State.SearchQuery)
	assert.Equal(t, []string{"1318"}, productCodes(m.Products))
}

func TestHandleWS_RehydratesAndPersistsPreferences(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo, err := services.NewSQLitePreferencesRepository(ctx, testutil.NewStore(t))
	require.NoError(t, err)
	const clientID = "0b7c5d6e-1f2a-4b3c-8d9e-0a1b2c3d4e5f"
	require.NoError(t, repo.Save(ctx, clientID, filter.Preferences{ViewMode: filter.ViewList, ShowUnmatched: true}))

	srv, _ := newLiveServer(t, repo, time.Second)
	header := http.Header{}
	header.Set("Cookie", server.ClientIDCookie+"="+clientID)
	conn := dial(t, ctx, srv, "", header)
	defer conn.CloseNow()

	m := read(t, ctx, conn)
	assert.Equal(t, filter.ViewList, m.State.ViewMode)
	assert.True(t, m.State.ShowUnmatched)
	assert.Equal(t, 24, m.Count)

	require.NoError(t, wsjson.Write(ctx, conn, Intent{Type: IntentSetViewMode, Value: []byte(`"grid"`)}))
	_ = read(t, ctx, conn)

	got, err := repo.Get(ctx, clientID)
	require.NoError(t, err)
	assert.Equal(t, filter.ViewGrid, got.ViewMode)
	assert.True(t, got.ShowUnmatched)
}

func TestModule_StopClosesSessions(t *testing.T) {
	srv, m := newLiveServer(t, nil, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, srv, "", nil)
	defer conn.CloseNow()
	_ = read(t, ctx, conn)

	stopped := make(chan error, 1)
	go func() { stopped <- m.Stop() }()

	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	require.NoError(t, <-stopped)
}

func TestModule_Metadata(t *testing.T) {
	m := New(nil, nil, nil)
	assert.Equal(t, "live", m.Name())
	assert.NotEmpty(t, m.Version())
	require.Len(t, m.Routes(), 1)
	assert.Equal(t, "/ws", m.Routes()[0].Path)
}
