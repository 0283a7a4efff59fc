package oto

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/skyduel/beatsynth"
)

func TestAppend16BitLEClips(t *testing.T) {
	out := Append16BitLE(nil, beatsynth.AudioBuffer{{0.5, -2}, {2, 0}})
	if len(out) != 8 {
		t.Fatalf("got %v bytes, want 8", len(out))
	}
	want := []int16{int16(0.5 * math.MaxInt16), -math.MaxInt16, math.MaxInt16, 0}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(out[2*i:])); got != w {
			t.Errorf("sample %v = %v, want %v", i, got, w)
		}
	}
}

func TestAppendFloat32LE(t *testing.T) {
	out := AppendFloat32LE([]byte{1}, beatsynth.AudioBuffer{{0.25, -0.75}})
	if len(out) != 9 || out[0] != 1 {
		t.Fatalf("unexpected output %v", out)
	}
	if l := math.Float32frombits(binary.LittleEndian.Uint32(out[1:])); l != 0.25 {
		t.Errorf("left = %v, want 0.25", l)
	}
	if r := math.Float32frombits(binary.LittleEndian.Uint32(out[5:])); r != -0.75 {
		t.Errorf("right = %v, want -0.75", r)
	}
}

func TestOutputReadsWholeFrames(t *testing.T) {
	calls := 0
	o := newOutput(func(buf beatsynth.AudioBuffer) error {
		calls++
		for i := range buf {
			buf[i] = [2]float32{1, -1}
		}
		return nil
	}, false)
	p := make([]byte, 8*3+5)
	n, err := o.Read(p)
	if err != nil || n != 24 {
		t.Fatalf("Read = %v, %v; want 24, nil", n, err)
	}
	if n, err := o.Read(p[:3]); n != 0 || err != nil {
		t.Errorf("short Read = %v, %v; want 0, nil", n, err)
	}
	if calls != 1 {
		t.Errorf("source called %v times, want 1", calls)
	}
}

func TestOutputEndsWithSource(t *testing.T) {
	o := newOutput(func(buf beatsynth.AudioBuffer) error {
		return errors.New("done")
	}, true)
	if _, err := o.Read(make([]byte, 16)); err != io.EOF {
		t.Fatalf("Read error = %v, want io.EOF", err)
	}
	o.Wait()
	if err := o.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if _, err := o.Read(make([]byte, 16)); err != io.EOF {
		t.Errorf("Read after end = %v, want io.EOF", err)
	}
}
