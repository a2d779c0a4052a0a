package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator выдаёт clientMsgId: ULID, строго растущие даже внутри миллисекунды.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy *ulid.MonotonicEntropy
}

func NewGenerator(now func() time.Time) *Generator {
	var seed int64
	if err := binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed); err != nil || seed == 0 {
		seed = time.Now().UnixNano()
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{
		now:     now,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
	}
}

func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(g.now().UTC()), g.entropy)
	if err != nil {
		// только если время пошло назад или кончилась энтропия
		panic(err)
	}
	return v.String()
}

var std = NewGenerator(nil)

func New() string { return std.Next() }

// Age — сколько прошло с генерации id; false, если это не ULID.
// Точность — миллисекунда, для логов этого хватает.
func Age(s string, now time.Time) (time.Duration, bool) {
	v, err := ulid.ParseStrict(s)
	if err != nil {
		return 0, false
	}
	return now.Sub(ulid.Time(v.Time())), true
}
