// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package esp3

import (
	"errors"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomBytes(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	rng.Read(b)
	return b
}

// randomPacket builds a packet with random type and contents
func randomPacket(rng *rand.Rand) *Packet {
	packetType := PacketType(rng.Intn(0x12))
	data := randomBytes(rng, rng.Intn(64))
	optional := randomBytes(rng, rng.Intn(16))
	return NewPacket(packetType, data, optional)
}

// ============================================================
// Codec Fuzz Tests
// ============================================================

func TestFuzz_RoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		p := randomPacket(rng)
		decoded, err := Decode(EncodePacket(p))
		if err != nil {
			t.Fatalf("Round %d: decode error: %v", i, err)
		}
		if !decoded.Equal(p) {
			t.Fatalf("Round %d: round trip mismatch for %s", i, p.Type())
		}
	}
}

func TestFuzz_DecodeRandomBytes(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		frame := randomBytes(rng, rng.Intn(40))
		if len(frame) > 0 && rng.Intn(2) == 0 {
			frame[0] = SyncByte
		}
		p, err := Decode(frame)
		if p == nil && err == nil {
			t.Fatalf("Round %d: Decode returned neither packet nor error", i)
		}
		var fe *FrameError
		if err != nil && !errors.As(err, &fe) {
			t.Fatalf("Round %d: unexpected error type %T", i, err)
		}
	}
}

// ============================================================
// Stream Decoder Fuzz Tests
// ============================================================

// TestFuzz_StreamChunking encodes random packets separated by garbage free of
// sync bytes, feeds the stream in random chunks and expects every packet back.
func TestFuzz_StreamChunking(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds() / 10
	if rounds == 0 {
		rounds = 1
	}

	for i := 0; i < rounds; i++ {
		var stream []byte
		var sent []*Packet
		for n := rng.Intn(20) + 1; n > 0; n-- {
			for g := rng.Intn(4); g > 0; g-- {
				b := byte(rng.Intn(256))
				if b == SyncByte {
					b = 0x00
				}
				stream = append(stream, b)
			}
			p := randomPacket(rng)
			sent = append(sent, p)
			stream = AppendPacket(stream, p)
		}

		d := NewDecoder()
		var received []*Packet
		for off := 0; off < len(stream); {
			size := rng.Intn(32) + 1
			if off+size > len(stream) {
				size = len(stream) - off
			}
			for p, err := range d.Feed(stream[off : off+size]) {
				if err != nil {
					t.Fatalf("Round %d: unexpected error %v", i, err)
				}
				received = append(received, p)
			}
			off += size
		}

		if len(received) != len(sent) {
			t.Fatalf("Round %d: sent %d packets, received %d", i, len(sent), len(received))
		}
		for j := range sent {
			if !received[j].Equal(sent[j]) {
				t.Fatalf("Round %d: packet %d mismatch", i, j)
			}
		}
	}
}

// TestFuzz_StreamCorruption flips a random bit in one frame of a stream.
// Every frame after the corrupted one must still be decoded.
func TestFuzz_StreamCorruption(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds() / 10
	if rounds == 0 {
		rounds = 1
	}

	for i := 0; i < rounds; i++ {
		before := NewPacket(PacketTypeRadioERP1, []byte{0xF6, 0x30, 0x01, 0x02, 0x03, 0x04, 0x30}, nil)
		after := NewPacket(PacketTypeResponse, []byte{0x00}, nil)

		victim := EncodePacket(NewPacket(PacketTypeRadioERP1, []byte{0xA5, 0x00, 0x10, 0x20, 0x08, 0x0A, 0x0B, 0x0C, 0x0D, 0x00}, nil))
		pos := 1 + rng.Intn(len(victim)-1)
		victim[pos] ^= 1 << uint(rng.Intn(8))

		stream := EncodePacket(before)
		stream = append(stream, victim...)
		stream = AppendPacket(stream, after)

		d := NewDecoder()
		var received []*Packet
		var errs []error
		for p, err := range d.Feed(stream) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			received = append(received, p)
		}

		if len(received) == 0 || !received[0].Equal(before) {
			t.Fatalf("Round %d: packet before corruption lost", i)
		}
		if !received[len(received)-1].Equal(after) {
			// A corrupted length field can swallow the next frame; it must then
			// be recovered once enough bytes arrive or be reported truncated.
			if d.Flush() == nil {
				t.Fatalf("Round %d (pos %d): packet after corruption lost without error", i, pos)
			}
		}
		if len(errs) == 0 && len(received) == 3 {
			t.Fatalf("Round %d (pos %d): corruption not detected", i, pos)
		}
	}
}

func TestFuzz_RandomNoiseNeverPanics(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	d := NewDecoder()
	for i := 0; i < rounds; i++ {
		for range d.Feed(randomBytes(rng, rng.Intn(64))) {
		}
		if d.Buffered() > MaxFrameSize {
			t.Fatalf("Round %d: buffer grew to %d bytes", i, d.Buffered())
		}
	}
}
