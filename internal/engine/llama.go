//go:build llama

package engine

// cgo link directives for the in-process llama.cpp binding.
// - rpath of $ORIGIN so the runtime loader finds libllama.so and libggml*.so
//   next to the built binary (./bin).
// - -L${SRCDIR}/../../bin so the linker finds libllama.so at link time.

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/llama.cpp/include -I${SRCDIR}/../../third_party/llama.cpp/ggml/include
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama -lggml -lggml-base -lm -lstdc++
#include <stdlib.h>
#include <stdbool.h>
#include "llama.h"

static void sd_batch_set(llama_batch *b, int i, llama_token tok, llama_pos pos, bool logits) {
	b->token[i] = tok;
	b->pos[i] = pos;
	b->n_seq_id[i] = 1;
	b->seq_id[i][0] = 0;
	b->logits[i] = logits;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"
)

// Built reports whether this binary links a real inference engine.
const Built = true

var backendOnce sync.Once

type llamaEngine struct {
	model *C.struct_llama_model
	ctx   *C.struct_llama_context
	vocab *C.struct_llama_vocab

	batch    C.struct_llama_batch
	batchCap int
	nCtx     int
	nVocab   int

	logitsPos int
	logits    []float32
	specials  Specials
	piece     []byte
}

// Load opens a GGUF model and creates a single inference context.
func Load(modelPath string, opts Options) (Engine, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, fmt.Errorf("engine: model path is empty")
	}
	opts = opts.WithDefaults()
	backendOnce.Do(func() { C.llama_backend_init() })

	cpath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cpath))

	mp := C.llama_model_default_params()
	mp.n_gpu_layers = C.int32_t(opts.GPULayers)
	mp.use_mmap = C.bool(opts.UseMmap)
	model := C.llama_model_load_from_file(cpath, mp)
	if model == nil {
		return nil, fmt.Errorf("engine: load model %q failed", modelPath)
	}

	cp := C.llama_context_default_params()
	cp.n_ctx = C.uint32_t(opts.ContextSize)
	cp.n_batch = C.uint32_t(opts.BatchSize)
	cp.n_threads = C.int32_t(opts.Threads)
	cp.n_threads_batch = C.int32_t(opts.Threads)
	ctx := C.llama_init_from_model(model, cp)
	if ctx == nil {
		C.llama_model_free(model)
		return nil, fmt.Errorf("engine: create context for %q failed", modelPath)
	}

	e := &llamaEngine{
		model:     model,
		ctx:       ctx,
		vocab:     C.llama_model_get_vocab(model),
		nCtx:      int(C.llama_n_ctx(ctx)),
		batchCap:  int(C.llama_n_batch(ctx)),
		logitsPos: -1,
		piece:     make([]byte, 64),
	}
	e.nVocab = int(C.llama_vocab_n_tokens(e.vocab))
	e.batch = C.llama_batch_init(C.int32_t(e.batchCap), 0, 1)
	if e.batch.token == nil {
		_ = e.Close()
		return nil, ErrBatchInit
	}
	e.specials = e.readSpecials(opts.ControlFloor)
	return e, nil
}

func (e *llamaEngine) readSpecials(floor Token) Specials {
	sp := Specials{
		EndOfTurn:    Token(C.llama_vocab_eot(e.vocab)),
		ControlFloor: floor,
		Control:      map[Token]struct{}{},
	}
	if eos := Token(C.llama_vocab_eos(e.vocab)); eos >= 0 {
		sp.EndOfSequence = append(sp.EndOfSequence, eos)
	}
	if sp.EndOfTurn < 0 && len(sp.EndOfSequence) > 0 {
		sp.EndOfTurn = sp.EndOfSequence[0]
	}
	for id := 0; id < e.nVocab; id++ {
		tok := C.llama_token(id)
		if bool(C.llama_vocab_is_eog(e.vocab, tok)) && Token(id) != sp.EndOfTurn {
			sp.EndOfSequence = append(sp.EndOfSequence, Token(id))
		}
		if Token(id) < floor && bool(C.llama_vocab_is_control(e.vocab, tok)) {
			sp.Control[Token(id)] = struct{}{}
		}
	}
	return sp
}

func (e *llamaEngine) Tokenize(text string, addBOS bool) ([]Token, error) {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	out := make([]Token, len(text)+16)
	n := C.llama_tokenize(e.vocab, ctext, C.int32_t(len(text)),
		(*C.llama_token)(unsafe.Pointer(&out[0])), C.int32_t(len(out)), C.bool(addBOS), C.bool(true))
	if n < 0 {
		out = make([]Token, int(-n))
		n = C.llama_tokenize(e.vocab, ctext, C.int32_t(len(text)),
			(*C.llama_token)(unsafe.Pointer(&out[0])), C.int32_t(len(out)), C.bool(addBOS), C.bool(true))
		if n < 0 {
			return nil, ErrTokenize
		}
	}
	return out[:int(n)], nil
}

func (e *llamaEngine) Evaluate(tokens []Token, startPos int, logitsForLast bool) error {
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) > e.batchCap {
		return fmt.Errorf("%w: %d tokens exceed batch capacity %d", ErrBatchInit, len(tokens), e.batchCap)
	}
	for i, tok := range tokens {
		last := i == len(tokens)-1
		C.sd_batch_set(&e.batch, C.int(i), C.llama_token(tok), C.llama_pos(startPos+i), C.bool(last && logitsForLast))
	}
	e.batch.n_tokens = C.int32_t(len(tokens))
	e.logitsPos = -1
	if rc := C.llama_decode(e.ctx, e.batch); rc != 0 {
		return fmt.Errorf("%w: llama_decode returned %d", ErrDecode, int(rc))
	}
	if logitsForLast {
		e.logitsPos = startPos + len(tokens) - 1
	}
	return nil
}

func (e *llamaEngine) Logits(pos int) ([]float32, bool) {
	if pos < 0 || pos != e.logitsPos {
		return nil, false
	}
	ptr := C.llama_get_logits_ith(e.ctx, -1)
	if ptr == nil {
		return nil, false
	}
	if cap(e.logits) < e.nVocab {
		e.logits = make([]float32, e.nVocab)
	}
	e.logits = e.logits[:e.nVocab]
	copy(e.logits, unsafe.Slice((*float32)(unsafe.Pointer(ptr)), e.nVocab))
	return e.logits, true
}

func (e *llamaEngine) Detokenize(tok Token) []byte {
	n := C.llama_token_to_piece(e.vocab, C.llama_token(tok),
		(*C.char)(unsafe.Pointer(&e.piece[0])), C.int32_t(len(e.piece)), 0, C.bool(false))
	if n < 0 {
		e.piece = make([]byte, int(-n))
		n = C.llama_token_to_piece(e.vocab, C.llama_token(tok),
			(*C.char)(unsafe.Pointer(&e.piece[0])), C.int32_t(len(e.piece)), 0, C.bool(false))
	}
	if n <= 0 {
		return nil
	}
	return append([]byte(nil), e.piece[:int(n)]...)
}

func (e *llamaEngine) ContextSize() int  { return e.nCtx }
func (e *llamaEngine) BatchSize() int    { return e.batchCap }
func (e *llamaEngine) Specials() Specials { return e.specials }

func (e *llamaEngine) ClearMemory() {
	C.llama_memory_clear(C.llama_get_memory(e.ctx), C.bool(true))
	e.logitsPos = -1
}

func (e *llamaEngine) SaveState() ([]byte, error) {
	size := int(C.llama_state_get_size(e.ctx))
	if size <= 0 {
		return nil, ErrStateSize
	}
	buf := make([]byte, size)
	n := int(C.llama_state_get_data(e.ctx, (*C.uint8_t)(unsafe.Pointer(&buf[0])), C.size_t(size)))
	if n != size {
		return nil, fmt.Errorf("%w: wrote %d of %d bytes", ErrStateSize, n, size)
	}
	return buf, nil
}

func (e *llamaEngine) LoadState(data []byte) error {
	if len(data) == 0 {
		return ErrStateSize
	}
	n := int(C.llama_state_set_data(e.ctx, (*C.uint8_t)(unsafe.Pointer(&data[0])), C.size_t(len(data))))
	if n != len(data) {
		return fmt.Errorf("%w: read %d of %d bytes", ErrStateSize, n, len(data))
	}
	e.logitsPos = -1
	return nil
}

func (e *llamaEngine) Close() error {
	if e.batch.token != nil {
		C.llama_batch_free(e.batch)
		e.batch = C.struct_llama_batch{}
	}
	if e.ctx != nil {
		C.llama_free(e.ctx)
		e.ctx = nil
	}
	if e.model != nil {
		C.llama_model_free(e.model)
		e.model = nil
	}
	return nil
}
