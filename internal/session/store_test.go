package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
	"github.com/KaramelBytes/tallyloom/internal/record"
	"github.com/KaramelBytes/tallyloom/internal/session"
)

// StoreSuite runs the same contract against every Store implementation.
type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	open  func(t *testing.T) session.Store
	store session.Store
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open(s.T())
}

func (s *StoreSuite) TearDownTest() {
	require.NoError(s.T(), s.store.Close())
}

func sample(name string, created time.Time) *session.Session {
	res := &pipeline.Result{
		Format:         format.CSV,
		Financial:      record.Sequence{record.Of("nome", "Ana", "valor", 10), record.Of("nome", "Bia", "valor", 20.5)},
		Organizational: record.Sequence{record.Of("categoria", "Saúde", "ativo", true)},
	}
	sess := session.New(name, res)
	sess.CreatedAt = created
	return sess
}

// TestSaveLoadRoundTrip keeps records, key order and value kinds.
func (s *StoreSuite) TestSaveLoadRoundTrip() {
	in := sample("caixa", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(s.T(), s.store.Save(s.ctx, in))

	out, err := s.store.Load(s.ctx, in.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), in.ID, out.ID)
	require.Equal(s.T(), "caixa", out.Name)
	require.Equal(s.T(), format.CSV, out.Format)
	require.True(s.T(), in.CreatedAt.Equal(out.CreatedAt))
	require.Len(s.T(), out.Financial, 2)
	require.True(s.T(), out.Financial[1].Equal(in.Financial[1]))
	require.Equal(s.T(), []string{"nome", "valor"}, out.Financial[0].Keys())
	v, _ := out.Financial[0].Get("valor")
	require.Equal(s.T(), record.KindInt, v.Kind())
	b, _ := out.Bucket(classify.Organizational)[0].Get("ativo")
	require.Equal(s.T(), record.KindBool, b.Kind())
}

// TestSaveReplaces overwrites an existing id.
func (s *StoreSuite) TestSaveReplaces() {
	in := sample("v1", time.Now().UTC())
	require.NoError(s.T(), s.store.Save(s.ctx, in))
	in.Name = "v2"
	in.Organizational = record.Sequence{}
	require.NoError(s.T(), s.store.Save(s.ctx, in))

	metas, err := s.store.List(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), metas, 1)
	require.Equal(s.T(), "v2", metas[0].Name)
	require.Equal(s.T(), 0, metas[0].Organizational)
}

// TestListOrderAndCounts lists oldest first with bucket sizes.
func (s *StoreSuite) TestListOrderAndCounts() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sample("newer", base.Add(time.Hour))
	older := sample("older", base)
	require.NoError(s.T(), s.store.Save(s.ctx, newer))
	require.NoError(s.T(), s.store.Save(s.ctx, older))

	metas, err := s.store.List(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), metas, 2)
	require.Equal(s.T(), "older", metas[0].Name)
	require.Equal(s.T(), "newer", metas[1].Name)
	require.Equal(s.T(), 2, metas[0].Financial)
	require.Equal(s.T(), 1, metas[0].Organizational)
}

// TestDeleteAndClear report ErrNotFound for unknown ids.
func (s *StoreSuite) TestDeleteAndClear() {
	a := sample("a", time.Now().UTC())
	b := sample("b", time.Now().UTC())
	require.NoError(s.T(), s.store.Save(s.ctx, a))
	require.NoError(s.T(), s.store.Save(s.ctx, b))

	require.NoError(s.T(), s.store.Delete(s.ctx, a.ID))
	require.ErrorIs(s.T(), s.store.Delete(s.ctx, a.ID), session.ErrNotFound)
	_, err := s.store.Load(s.ctx, a.ID)
	require.ErrorIs(s.T(), err, session.ErrNotFound)

	require.NoError(s.T(), s.store.Clear(s.ctx))
	metas, err := s.store.List(s.ctx)
	require.NoError(s.T(), err)
	require.Empty(s.T(), metas)
}

// TestInvalidIDs never touch storage.
func (s *StoreSuite) TestInvalidIDs() {
	for _, id := range []string{"", "../etc/passwd", "not-a-uuid"} {
		_, err := s.store.Load(s.ctx, id)
		require.ErrorIs(s.T(), err, session.ErrNotFound, id)
		require.ErrorIs(s.T(), s.store.Delete(s.ctx, id), session.ErrNotFound, id)
	}
	bad := sample("x", time.Now())
	bad.ID = "nope"
	require.Error(s.T(), s.store.Save(s.ctx, bad))
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(t *testing.T) session.Store {
		st, err := session.NewFileStore(filepath.Join(t.TempDir(), "sessions"))
		require.NoError(t, err)
		return st
	}})
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func(t *testing.T) session.Store {
		st, err := session.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		return st
	}})
}

func TestSQLiteStoreInMemory(t *testing.T) {
	st, err := session.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer st.Close()
	in := sample("mem", time.Now().UTC())
	require.NoError(t, st.Save(context.Background(), in))
	_, err = st.Load(context.Background(), in.ID)
	require.NoError(t, err)
}

func TestFileStoreClearKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := session.NewFileStore(dir)
	require.NoError(t, err)
	keep := filepath.Join(dir, "notes.json")
	require.NoError(t, os.WriteFile(keep, []byte("{}"), 0o644))
	require.NoError(t, st.Save(context.Background(), sample("x", time.Now())))

	require.NoError(t, st.Clear(context.Background()))
	_, err = os.Stat(keep)
	require.NoError(t, err)
	metas, err := st.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, metas)
}

func TestNewDefaultsAndOpen(t *testing.T) {
	sess := session.New("  ", nil)
	require.Equal(t, session.DefaultName, sess.Name)
	require.NotNil(t, sess.Financial)
	require.Len(t, sess.ID, 36)

	_, err := session.Open("redis", t.TempDir())
	require.Error(t, err)
}
