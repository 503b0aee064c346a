//go:build darwin && cgo

package livetext

/*
#cgo CFLAGS: -x objective-c -fobjc-arc -mmacosx-version-min=10.15
#cgo LDFLAGS: -framework Foundation -framework ImageIO -framework CoreGraphics -framework VisionKit

#include <stdlib.h>
#include "livetext_darwin.h"
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"runtime/cgo"
	"unsafe"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

var available bool

func init() {
	available = C.lt_available() != 0
}

// Available reports whether VisionKit's image analyzer was found at load time
func (p *Provider) Available() bool {
	return available
}

// Analyze submits img on a dedicated OS thread whose run loop is pumped until
// the analyzer calls back or ctx is cancelled
func (p *Provider) Analyze(ctx context.Context, img image.Image, languages []string, done func(providers.Tree, error)) error {
	data, err := providers.EncodePNG(img)
	if err != nil {
		return err
	}

	handle := cgo.NewHandle(done)
	job := C.lt_job_new(C.uintptr_t(handle))

	submitted := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer C.lt_job_release(job)

		cLangs := make([]*C.char, len(languages))
		for i, lang := range languages {
			cLangs[i] = C.CString(lang)
		}
		defer func() {
			for _, s := range cLangs {
				C.free(unsafe.Pointer(s))
			}
		}()

		var langsPtr **C.char
		if len(cLangs) > 0 {
			langsPtr = (**C.char)(C.malloc(C.size_t(len(cLangs)) * C.size_t(unsafe.Sizeof(cLangs[0]))))
			defer C.free(unsafe.Pointer(langsPtr))
			copy(unsafe.Slice(langsPtr, len(cLangs)), cLangs)
		}

		cData := C.CBytes(data)
		defer C.free(cData)

		stop := context.AfterFunc(ctx, func() { C.lt_job_cancel(job) })
		defer stop()

		// the job is claimed by the completion handler or the cancel path,
		// never both; a submission error leaves it unclaimed
		submitted <- nil
		if msg := C.lt_job_run(job, cData, C.size_t(len(data)), langsPtr, C.int(len(cLangs))); msg != nil {
			defer C.free(unsafe.Pointer(msg))
			handle.Delete()
			done(nil, errors.New(C.GoString(msg)))
		}
	}()

	return <-submitted
}

//export goLiveTextComplete
func goLiveTextComplete(handle C.uintptr_t, lines *C.lt_line, count C.int, errMsg *C.char) {
	h := cgo.Handle(handle)
	done, ok := h.Value().(func(providers.Tree, error))
	h.Delete()
	if !ok {
		return
	}

	if errMsg != nil {
		done(nil, fmt.Errorf("live text analysis failed: %s", C.GoString(errMsg)))
		return
	}

	tree := make(providers.Tree, 0, int(count))
	for _, line := range unsafe.Slice(lines, int(count)) {
		l := providers.Line{
			Text: C.GoString(line.text),
			Quad: box(line.x, line.y, line.width, line.height),
		}
		for _, token := range unsafe.Slice(line.tokens, int(line.token_count)) {
			l.Tokens = append(l.Tokens, providers.Token{
				Text: C.GoString(token.text),
				Quad: box(token.x, token.y, token.width, token.height),
			})
		}
		tree = append(tree, l)
	}
	done(tree, nil)
}

func box(x, y, w, h C.double) coords.NormalizedBox {
	return coords.NormalizedBox{X: float64(x), Y: float64(y), Width: float64(w), Height: float64(h)}
}
