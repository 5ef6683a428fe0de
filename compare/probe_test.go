package compare

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/BaSui01/configcomparer/config"
)

// versionFetcher 按环境返回版本号或错误
type versionFetcher struct {
	versions map[string]string
	errs     map[string]error
}

func (f versionFetcher) Fetch(_ context.Context, env string, _ config.EnvironmentConfig, query string, scan ScanFunc) ([]Row, error) {
	if query != QueryVersion {
		return nil, errors.New("unexpected query")
	}
	if err := f.errs[env]; err != nil {
		return nil, err
	}
	v, ok := f.versions[env]
	if !ok {
		return nil, nil
	}
	row, err := scan(fakeScanner{values: []any{v}})
	if err != nil {
		return nil, err
	}
	return []Row{row}, nil
}

func TestProber_Probe(t *testing.T) {
	fetcher := versionFetcher{
		versions: map[string]string{"PRO": "8.0.36", "PRE": "5.7.44"},
		errs:     map[string]error{"TEST": errors.New("access denied for user")},
	}
	var (
		mu       sync.Mutex
		sshCalls []string
	)
	sshProbe := func(_ context.Context, cfg config.SSHConfig, timeout time.Duration) error {
		assert.Equal(t, 3*time.Second, timeout)
		mu.Lock()
		sshCalls = append(sshCalls, cfg.Host)
		mu.Unlock()
		if cfg.Host == "bad-bastion" {
			return errors.New("ssh: unable to authenticate")
		}
		return nil
	}

	envs := map[string]config.EnvironmentConfig{
		"PRO":  {Enabled: true, SSH: config.SSHConfig{Enabled: true, Host: "bastion"}},
		"PRE":  {Enabled: true},
		"TEST": {Enabled: true},
		"DEV":  {SSH: config.SSHConfig{Enabled: true, Host: "bad-bastion"}},
	}

	prober := NewProber(fetcher, 3*time.Second, zap.NewNop(), WithSSHProbe(sshProbe))
	results := prober.Probe(context.Background(), envs)

	require.Len(t, results, 4)
	byEnv := make(map[string]ProbeResult)
	for _, r := range results {
		byEnv[r.Environment] = r
	}
	assert.Equal(t, []string{"DEV", "PRE", "PRO", "TEST"},
		[]string{results[0].Environment, results[1].Environment, results[2].Environment, results[3].Environment})

	assert.Equal(t, ProbeOK, byEnv["PRO"].SSH)
	assert.Equal(t, ProbeOK, byEnv["PRO"].Database)
	assert.Equal(t, "8.0.36", byEnv["PRO"].Version)

	assert.Equal(t, ProbeSkipped, byEnv["PRE"].SSH)
	assert.Equal(t, "5.7.44", byEnv["PRE"].Version)

	assert.Equal(t, ProbeFailed, byEnv["TEST"].Database)
	assert.Contains(t, byEnv["TEST"].DatabaseError, "access denied")

	assert.Equal(t, ProbeFailed, byEnv["DEV"].SSH)
	assert.Equal(t, ProbeSkipped, byEnv["DEV"].Database)
	assert.ElementsMatch(t, []string{"bastion", "bad-bastion"}, sshCalls)
}

func TestProber_EmptyVersionFails(t *testing.T) {
	prober := NewProber(versionFetcher{}, time.Second, zap.NewNop())

	results := prober.Probe(context.Background(), map[string]config.EnvironmentConfig{"PRO": {Enabled: true}})
	require.Len(t, results, 1)
	assert.Equal(t, ProbeFailed, results[0].Database)
}

func TestProber_WithSQLFetcher(t *testing.T) {
	h := newFetcherHarness(t)
	h.mock.ExpectQuery(QueryVersion).WillReturnRows(sqlmock.NewRows([]string{"VERSION()"}).AddRow("8.0.36"))
	h.mock.ExpectClose()

	prober := NewProber(h.fetcher, time.Second, zap.NewNop())
	results := prober.Probe(context.Background(), map[string]config.EnvironmentConfig{"PRO": directEnv()})

	require.Len(t, results, 1)
	assert.Equal(t, ProbeOK, results[0].Database)
	assert.Equal(t, "8.0.36", results[0].Version)
	assert.NoError(t, h.mock.ExpectationsWereMet())
}

func TestProber_UnreachableDatabase(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	fetcher := NewSQLFetcher(config.FetchConfig{QueryTimeout: time.Second}, zap.NewNop(),
		WithDialector(func(string) gorm.Dialector {
			return mysql.New(mysql.Config{Conn: mockDB, SkipInitializeWithVersion: true})
		}),
	)
	mock.ExpectPing().WillReturnError(errors.New("no route to host"))
	mock.ExpectClose()

	results := NewProber(fetcher, time.Second, zap.NewNop()).Probe(context.Background(), map[string]config.EnvironmentConfig{"PRE": directEnv()})

	require.Len(t, results, 1)
	assert.Equal(t, ProbeFailed, results[0].Database)
	assert.Contains(t, results[0].DatabaseError, "no route to host")
	assert.Empty(t, results[0].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
