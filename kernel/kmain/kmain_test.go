package kmain

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"bos/kernel/kfmt"
	"bos/kernel/mm/pmm"
	"bos/kernel/task"
	"bos/kernel/task/keyboard"
	"bos/multiboot"
)

func TestParseConfig(t *testing.T) {
	specs := []struct {
		cmdLine string
		exp     Config
		expErr  bool
	}{
		{"", Config{KbdQueueCapacity: keyboard.DefaultQueueCapacity}, false},
		{"memmap", Config{KbdQueueCapacity: keyboard.DefaultQueueCapacity, PrintMemMap: true}, false},
		{"kbdqueue=16 memmap", Config{KbdQueueCapacity: 16, PrintMemMap: true}, false},
		{"root=/dev/sda1 kbdqueue=1", Config{KbdQueueCapacity: 1}, false},
		{"kbdqueue=0", Config{}, true},
		{"kbdqueue=-4", Config{}, true},
		{"kbdqueue=lots", Config{}, true},
		{"kbdqueue", Config{}, true},
	}

	for specIndex, spec := range specs {
		cfg, err := ParseConfig(multiboot.ParseCmdLine(spec.cmdLine))
		if spec.expErr {
			if err != errInvalidKbdQueue {
				t.Errorf("[spec %d] expected to get errInvalidKbdQueue; got %v", specIndex, err)
			}
			continue
		}

		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}

		if cfg != spec.exp {
			t.Errorf("[spec %d] expected config %+v; got %+v", specIndex, spec.exp, cfg)
		}
	}
}

func TestBoot(t *testing.T) {
	defer func(origFn func(int, io.Writer) task.Task) {
		printKeypressesFn = origFn
	}(printKeypressesFn)

	origSink := kfmt.GetOutputSink()
	defer kfmt.SetOutputSink(origSink)

	memMap := multiboot.MemoryMap{
		{PhysAddress: 0, Length: 0x4000, Type: multiboot.MemAvailable},
		{PhysAddress: 0x4000, Length: 0x1000, Type: multiboot.MemReserved},
	}

	for _, printMemMap := range []bool{false, true} {
		var (
			out      bytes.Buffer
			keys     bytes.Buffer
			capacity int
			polled   int
		)
		kfmt.SetOutputSink(&out)

		printKeypressesFn = func(c int, w io.Writer) task.Task {
			capacity = c
			if w != &keys {
				t.Error("expected keyboard task to receive the supplied writer")
			}
			return task.TaskFunc(func(_ *task.Context) task.PollState {
				polled++
				return task.Ready
			})
		}

		cfg := Config{KbdQueueCapacity: 8, PrintMemMap: printMemMap}
		exec, err := Boot(cfg, pmm.NewBootInfoAllocator(memMap), task.NewChanHalter(), &keys)
		if err != nil {
			t.Fatal(err)
		}

		if capacity != 8 {
			t.Errorf("expected keyboard task to be created with capacity 8; got %d", capacity)
		}

		if got := exec.Len(); got != 1 {
			t.Fatalf("expected 1 spawned task; got %d", got)
		}

		exec.RunReady()
		if polled != 1 || exec.Len() != 0 {
			t.Errorf("expected the keyboard task to be polled once and complete; polled %d times", polled)
		}

		output := out.String()
		if exp := "[kmain] keyboard task started (queue capacity: 8)\n"; !strings.HasSuffix(output, exp) {
			t.Errorf("expected output to end with %q; got %q", exp, output)
		}

		hasMemMap := strings.Contains(output, "[pmm] system memory map:\n") &&
			strings.Contains(output, "[pmm] usable frames: 4, allocated: 0\n")
		if hasMemMap != printMemMap {
			t.Errorf("[memmap=%t] unexpected memory map output: %q", printMemMap, output)
		}
	}
}
