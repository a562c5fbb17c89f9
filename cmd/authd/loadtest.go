package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/cache"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type loadtestOptions struct {
	users       int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

// sessionState holds one seeded user's current token pair. Refresh rotates
// the pair, so workers serialize on mu per user.
type sessionState struct {
	mu     sync.Mutex
	tokens authcore.TokenSet
}

func newLoadtestCmd() *cobra.Command {
	var o loadtestOptions
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure authenticate and refresh throughput against an in-process engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.users <= 0 || o.concurrency <= 0 || o.ops <= 0 {
				return errors.New("users, concurrency, and ops must be > 0")
			}
			if o.redisAddr == "" {
				o.redisAddr = os.Getenv("REDIS_ADDR")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().IntVar(&o.users, "users", 1000, "number of users to seed")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&o.ops, "ops", 20000, "operations per phase (authenticate + refresh)")
	cmd.Flags().StringVar(&o.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	cmd.Flags().StringVar(&o.prefix, "prefix", "lt", "cache key prefix")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, o loadtestOptions) error {
	addr := o.redisAddr
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		cleanup = mr.Close
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		cleanup = func() {}
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	defer cleanup()

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = client.Close() }()

	store, err := userstore.Open(userstore.DriverSQLite, ":memory:")
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if err := store.CreateSchema(ctx); err != nil {
		return err
	}
	if err := store.Seed(ctx, permission.DefaultCatalog()); err != nil {
		return err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return err
	}
	cfg := authcore.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = secret

	engine, err := authcore.New().
		WithConfig(cfg).
		WithCache(cache.NewRedisStore(client, o.prefix)).
		WithUserStore(store).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	states := make([]sessionState, o.users)
	fmt.Fprintf(out, "seeding %d users...\n", o.users)
	startSeed := time.Now()
	for i := range states {
		id := fmt.Sprintf("lt-%d", i)
		if _, err := store.CreateUser(ctx, authcore.NewUser{
			ID:           id,
			Email:        fmt.Sprintf("%s@loadtest.invalid", id),
			PasswordHash: "unused",
			Roles:        []string{permission.RoleMember},
		}); err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		ts, err := engine.Issue(ctx, id, authcore.OriginMobile)
		if err != nil {
			return fmt.Errorf("issue: %w", err)
		}
		states[i].tokens = ts
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(o.ops, o.concurrency, 7919, func(r *mrand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		access := st.tokens.AccessToken
		st.mu.Unlock()
		_, err := engine.Authenticate(ctx, access)
		return err
	})
	refreshStats := runPhase(o.ops, o.concurrency, 6151, func(r *mrand.Rand) error {
		st := &states[r.Intn(len(states))]
		st.mu.Lock()
		defer st.mu.Unlock()
		next, err := engine.Refresh(ctx, st.tokens.RefreshToken, "")
		if err == nil {
			st.tokens = next
		}
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "authenticate", authStats)
	printStats(out, "refresh", refreshStats)
	return nil
}

// runPhase performs ops calls of op across concurrency workers and records
// the latency of each call.
func runPhase(ops, concurrency int, seed int64, op func(*mrand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
