package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/osvaldoandrade/songbridge/pkg/config"
	"github.com/osvaldoandrade/songbridge/pkg/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lim := NewRedisLimiter(rdb)
	lim.now = func() time.Time { return now }
	return lim, mr, &now
}

func TestRedisLimiter_DisabledBucketAllows(t *testing.T) {
	lim, mr, _ := newTestLimiter(t)

	dec, err := lim.Allow(context.Background(), Subject{Client: "203.0.113.7", Kind: domain.KindMusic}, Bucket{})
	if err != nil || !dec.Allowed {
		t.Fatalf("Allow = %+v, %v", dec, err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("disabled bucket must not touch redis, keys=%v", keys)
	}
}

func TestRedisLimiter_BurstThenRefill(t *testing.T) {
	lim, _, now := newTestLimiter(t)
	ctx := context.Background()
	subj := Subject{Client: "203.0.113.7", Kind: domain.KindCover}
	bucket := Bucket{RequestsPerMinute: 60, BurstSize: 3}

	for i, wantRemaining := range []int{2, 1, 0} {
		dec, err := lim.Allow(ctx, subj, bucket)
		if err != nil || !dec.Allowed || dec.Remaining != wantRemaining {
			t.Fatalf("request %d: Allow = %+v, %v; want allowed with %d remaining", i, dec, err, wantRemaining)
		}
	}

	dec, err := lim.Allow(ctx, subj, bucket)
	if err != nil || dec.Allowed {
		t.Fatalf("over burst: Allow = %+v, %v", dec, err)
	}
	if dec.RetryAfter != time.Second {
		t.Fatalf("RetryAfter = %v, want 1s", dec.RetryAfter)
	}

	*now = now.Add(time.Second)
	if dec, _ := lim.Allow(ctx, subj, bucket); !dec.Allowed || dec.Remaining != 0 {
		t.Fatalf("after one interval: %+v", dec)
	}
}

func TestRedisLimiter_BudgetsAreSeparatePerKindAndClient(t *testing.T) {
	lim, _, _ := newTestLimiter(t)
	ctx := context.Background()
	bucket := Bucket{RequestsPerMinute: 1, BurstSize: 1}

	if dec, _ := lim.Allow(ctx, Subject{Client: "203.0.113.7", Kind: domain.KindMusic}, bucket); !dec.Allowed {
		t.Fatal("first music request should pass")
	}
	if dec, _ := lim.Allow(ctx, Subject{Client: "203.0.113.7", Kind: domain.KindMusic}, bucket); dec.Allowed {
		t.Fatal("second music request should be throttled")
	}

	others := []Subject{
		{Client: "203.0.113.7", Kind: domain.KindLyrics},
		{Client: "203.0.113.7", Kind: domain.KindCover},
		{Client: "198.51.100.4", Kind: domain.KindMusic},
	}
	for _, s := range others {
		if dec, _ := lim.Allow(ctx, s, bucket); !dec.Allowed {
			t.Fatalf("%+v should have its own budget", s)
		}
	}
}

func TestRedisLimiter_KeyExpiresWithBurst(t *testing.T) {
	lim, mr, _ := newTestLimiter(t)
	subj := Subject{Client: "203.0.113.7", Kind: domain.KindLyrics}

	if _, err := lim.Allow(context.Background(), subj, Bucket{RequestsPerMinute: 6, BurstSize: 2}); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	key := subj.key()
	if !mr.Exists(key) {
		t.Fatalf("expected limiter state at %s, keys=%v", key, mr.Keys())
	}
	if ttl := mr.TTL(key); ttl != 10*time.Second {
		t.Fatalf("TTL = %v, want one interval (10s)", ttl)
	}
}

func TestSubjectKey(t *testing.T) {
	a := Subject{Client: "203.0.113.7", Kind: domain.KindMusic}.key()
	b := Subject{Client: "203.0.113.7", Kind: domain.KindCover}.key()
	if a == b {
		t.Fatal("kinds must not share a key")
	}
	if got := (Subject{Client: " ", Kind: "video"}).key(); got != (Subject{Client: "unknown", Kind: "bogus"}).key() {
		t.Fatalf("blank client and unknown kind should normalize, got %s", got)
	}
	if len(a) != len(keyPrefix)+len("music:")+24 {
		t.Fatalf("key = %s", a)
	}
}

func TestBucketInterval(t *testing.T) {
	cases := []struct {
		rpm  int
		want time.Duration
	}{
		{60, time.Second},
		{1, time.Minute},
		{7, 8572 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := (Bucket{RequestsPerMinute: tc.rpm, BurstSize: 1}).interval(); got != tc.want {
			t.Errorf("interval(%d rpm) = %v, want %v", tc.rpm, got, tc.want)
		}
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RateLimitConfig{
		Generate: config.RateLimitBucketConfig{RequestsPerMinute: 10, BurstSize: 2},
		Kinds: map[string]config.RateLimitBucketConfig{
			"Music":  {RequestsPerMinute: 2, BurstSize: 1},
			"lyrics": {},
			"video":  {RequestsPerMinute: 99, BurstSize: 99},
		},
	})

	if got := p.For(domain.KindMusic); got != (Bucket{RequestsPerMinute: 2, BurstSize: 1}) {
		t.Errorf("music bucket = %+v", got)
	}
	if got := p.For(domain.KindLyrics); got.Enabled() {
		t.Errorf("lyrics override should disable throttling, got %+v", got)
	}
	if got := p.For(domain.KindCover); got != (Bucket{RequestsPerMinute: 10, BurstSize: 2}) {
		t.Errorf("cover should fall back to the default, got %+v", got)
	}
	if len(p.Kinds) != 2 {
		t.Errorf("unknown kinds must be ignored, kinds=%v", p.Kinds)
	}
	if !p.Enabled() {
		t.Error("policy should be enabled")
	}
	if (Policy{Kinds: map[domain.TaskKind]Bucket{domain.KindCover: {}}}).Enabled() {
		t.Error("all-zero policy should be disabled")
	}
}
