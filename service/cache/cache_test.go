/*
 * @module service/cache/cache_test
 * @description 缓存存储与记忆化执行器测试
 * @architecture 测试层 - gorm(内存 sqlite) 与 badger(临时目录) 共用同一组契约用例
 * @stateFlow 打开存储 -> Put/Get -> 断言 -> 关闭
 * @rules 覆盖同键覆盖、复合键隔离、重启持久化、命中不生产、同键只生产一次
 * @dependencies testing, testify, gorm, badger
 * @refs store.go, gorm_store.go, badger_store.go, memoizer.go
 */

package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"inkstone-service/service/models"
	"inkstone-service/testutil"
)

var (
	keyA  = models.CacheKey{ItemID: "item-a", EvaluatorID: "sys-1", PromptVersion: "v1"}
	keyA2 = models.CacheKey{ItemID: "item-a", EvaluatorID: "sys-1", PromptVersion: "v2"}
	keyB  = models.CacheKey{ItemID: "item-a", EvaluatorID: "sys-2", PromptVersion: "v1"}
)

// StoreContractSuite 存储契约测试套件
type StoreContractSuite struct {
	suite.Suite
	open  func() Store
	store Store
	ctx   context.Context
}

func (s *StoreContractSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open()
}

func (s *StoreContractSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *StoreContractSuite) TestMiss() {
	output, ok, err := s.store.Get(s.ctx, keyA)
	s.NoError(err)
	s.False(ok)
	s.Empty(output)
}

func (s *StoreContractSuite) TestPutThenGet() {
	s.Require().NoError(s.store.Put(s.ctx, keyA, "first"))
	output, ok, err := s.store.Get(s.ctx, keyA)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("first", output)
}

func (s *StoreContractSuite) TestOverwrite() {
	s.Require().NoError(s.store.Put(s.ctx, keyA, "first"))
	s.Require().NoError(s.store.Put(s.ctx, keyA, "second"))
	output, ok, err := s.store.Get(s.ctx, keyA)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("second", output)

	if counter, isGorm := s.store.(*GormStore); isGorm {
		count, err := counter.Count(s.ctx)
		s.NoError(err)
		s.Equal(int64(1), count)
	}
}

func (s *StoreContractSuite) TestCancelledContextIsStorageError() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, _, err := s.store.Get(ctx, keyA)
	s.ErrorIs(err, ErrStorage)
	s.ErrorIs(err, context.Canceled)

	err = s.store.Put(ctx, keyA, "a")
	s.ErrorIs(err, ErrStorage)
	s.ErrorIs(err, context.Canceled)
}

func (s *StoreContractSuite) TestCompositeKeyIsolation() {
	s.Require().NoError(s.store.Put(s.ctx, keyA, "a-v1"))
	s.Require().NoError(s.store.Put(s.ctx, keyA2, "a-v2"))
	s.Require().NoError(s.store.Put(s.ctx, keyB, "b-v1"))

	for key, expected := range map[models.CacheKey]string{keyA: "a-v1", keyA2: "a-v2", keyB: "b-v1"} {
		output, ok, err := s.store.Get(s.ctx, key)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(expected, output)
	}
}

func (s *StoreContractSuite) TestConcurrentWritesDistinctKeys() {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := models.CacheKey{ItemID: "item", EvaluatorID: string(rune('a' + i)), PromptVersion: "v1"}
			s.NoError(s.store.Put(s.ctx, key, key.EvaluatorID))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		key := models.CacheKey{ItemID: "item", EvaluatorID: string(rune('a' + i)), PromptVersion: "v1"}
		output, ok, err := s.store.Get(s.ctx, key)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(key.EvaluatorID, output)
	}
}

func TestGormStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{open: func() Store {
		store, err := NewGormStore(context.Background(), testutil.NewTestDB().DB)
		require.NoError(t, err)
		return store
	}})
}

func TestBadgerStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{open: func() Store {
		store, err := OpenBadger(t.TempDir(), nil)
		require.NoError(t, err)
		return store
	}})
}

func TestPersistenceAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, driver := range []string{DriverSQLite, DriverBadger} {
		t.Run(driver, func(t *testing.T) {
			opts := Options{Driver: driver, DSN: DefaultDSN(driver, filepath.Join(dir, driver))}

			store, err := Open(ctx, opts)
			require.NoError(t, err)
			require.NoError(t, store.Put(ctx, keyA, "persisted"))
			require.NoError(t, store.Close())

			reopened, err := Open(ctx, opts)
			require.NoError(t, err)
			defer reopened.Close()
			output, ok, err := reopened.Get(ctx, keyA)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "persisted", output)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "redis", DSN: "x"})
	assert.ErrorIs(t, err, ErrStorage)

	_, err = Open(context.Background(), Options{Driver: DriverSQLite})
	assert.ErrorIs(t, err, ErrStorage)
}

func TestDefaultDSN(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "cache.sqlite3"), DefaultDSN(DriverSQLite, "data"))
	assert.Equal(t, filepath.Join("data", "cache.badger"), DefaultDSN(DriverBadger, "data"))
	assert.Empty(t, DefaultDSN(DriverPostgres, "data"))
}

// MockStrategy 生产策略 mock
type MockStrategy struct {
	mock.Mock
	name string
}

func (m *MockStrategy) Name() string { return m.name }

func (m *MockStrategy) Produce(ctx context.Context, key models.CacheKey, input string) (string, bool) {
	args := m.Called(key, input)
	return args.String(0), args.Bool(1)
}

func mockFallback(key models.CacheKey, input string) string {
	return "[" + key.EvaluatorID + "] " + input
}

func TestChain_Produce(t *testing.T) {
	ctx := context.Background()

	t.Run("首个成功者胜出", func(t *testing.T) {
		primary := &MockStrategy{name: "primary"}
		primary.On("Produce", keyA, "原文").Return("", false).Once()
		secondary := &MockStrategy{name: "secondary"}
		secondary.On("Produce", keyA, "原文").Return("translated", true).Once()
		never := &MockStrategy{name: "never"}

		output, producer := NewChain("mock", mockFallback, primary, secondary, never).Produce(ctx, keyA, "原文")
		assert.Equal(t, "translated", output)
		assert.Equal(t, "secondary", producer)
		primary.AssertExpectations(t)
		secondary.AssertExpectations(t)
		never.AssertNotCalled(t, "Produce", mock.Anything, mock.Anything)
	})

	t.Run("全部失败走兜底", func(t *testing.T) {
		primary := &MockStrategy{name: "primary"}
		primary.On("Produce", keyA, "原文").Return("", false).Once()

		output, producer := NewChain("mock", mockFallback, primary).Produce(ctx, keyA, "原文")
		assert.Equal(t, "[sys-1] 原文", output)
		assert.Equal(t, "mock", producer)
	})

	t.Run("函数策略", func(t *testing.T) {
		fn := StrategyFunc{Label: "fn", Fn: func(ctx context.Context, key models.CacheKey, input string) (string, bool) {
			return input + "!", true
		}}
		output, producer := NewChain("mock", mockFallback, fn).Produce(ctx, keyA, "x")
		assert.Equal(t, "x!", output)
		assert.Equal(t, "fn", producer)
	})
}

type recordingObserver struct {
	mu        sync.Mutex
	hits      int
	misses    int
	producers map[string]int
}

func (o *recordingObserver) ObserveCache(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *recordingObserver) ObserveProducer(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.producers == nil {
		o.producers = map[string]int{}
	}
	o.producers[name]++
}

func TestMemoizer_GetOrProduce(t *testing.T) {
	ctx := context.Background()
	store, err := NewGormStore(ctx, testutil.NewTestDB().DB)
	require.NoError(t, err)
	defer store.Close()

	var calls atomic.Int32
	chain := NewChain("mock", mockFallback, StrategyFunc{Label: "counting", Fn: func(ctx context.Context, key models.CacheKey, input string) (string, bool) {
		calls.Add(1)
		return "produced:" + input, true
	}})
	observer := &recordingObserver{}
	memo := NewMemoizer(store, WithObserver(observer))

	first, err := memo.GetOrProduce(ctx, keyA, "原文", chain)
	require.NoError(t, err)
	assert.False(t, first.Hit)
	assert.Equal(t, "counting", first.Producer)
	assert.Equal(t, "produced:原文", first.Output)

	second, err := memo.GetOrProduce(ctx, keyA, "原文", chain)
	require.NoError(t, err)
	assert.True(t, second.Hit)
	assert.Equal(t, "produced:原文", second.Output)
	assert.Equal(t, int32(1), calls.Load(), "命中时不应再次生产")

	output, ok, err := store.Get(ctx, keyA)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "produced:原文", output)

	assert.Equal(t, 1, observer.hits)
	assert.Equal(t, 1, observer.misses)
	assert.Equal(t, 1, observer.producers["counting"])
}

func TestMemoizer_ConcurrentSameKeyProducesOnce(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBadger("", nil)
	require.NoError(t, err)
	defer store.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	chain := NewChain("mock", mockFallback, StrategyFunc{Label: "slow", Fn: func(ctx context.Context, key models.CacheKey, input string) (string, bool) {
		calls.Add(1)
		<-release
		return "once", true
	}})
	memo := NewMemoizer(store)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := memo.GetOrProduce(ctx, keyA, "原文", chain)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "once", r.Output)
	}
	assert.Equal(t, int32(1), calls.Load(), "同键只生产一次")
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key models.CacheKey) (string, bool, error) {
	return "", false, storageError("读取缓存失败", errors.New("disk gone"))
}
func (failingStore) Put(ctx context.Context, key models.CacheKey, output string) error { return nil }
func (failingStore) Close() error                                                      { return nil }

func TestMemoizer_StorageErrorIsFatal(t *testing.T) {
	memo := NewMemoizer(failingStore{})
	_, err := memo.GetOrProduce(context.Background(), keyA, "原文", NewChain("mock", mockFallback))
	assert.ErrorIs(t, err, ErrStorage)
}
