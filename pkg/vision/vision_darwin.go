//go:build darwin && cgo

package vision

/*
#cgo CFLAGS: -x objective-c -fobjc-arc -mmacosx-version-min=10.15
#cgo LDFLAGS: -framework Vision -framework Foundation

#include <stdlib.h>
#include "vision_darwin.h"
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// Available reports whether the Vision text recognition request exists on this macOS
func (p *Provider) Available() bool {
	return C.vn_available() != 0
}

// SupportedLanguages asks Vision which languages the level can recognize
func (p *Provider) SupportedLanguages(ctx context.Context, level providers.Level) ([]string, error) {
	res := C.vn_supported_languages(fastFlag(level))
	defer C.vn_free_languages(res)

	if res.error != nil {
		return nil, errors.New(C.GoString(res.error))
	}

	items := unsafe.Slice(res.items, int(res.count))
	langs := make([]string, 0, len(items))
	for _, item := range items {
		langs = append(langs, C.GoString(item))
	}
	return langs, nil
}

// Recognize performs one synchronous text recognition request.
// Vision reports boxes already normalized with a bottom-left origin.
func (p *Provider) Recognize(ctx context.Context, req providers.RecognizeRequest) ([]providers.Observation, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cLangs := make([]*C.char, len(req.Languages))
	for i, lang := range req.Languages {
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

	img := C.CBytes(req.Image)
	defer C.free(img)

	res := C.vn_recognize(img, C.size_t(len(req.Image)), fastFlag(req.Level), langsPtr, C.int(len(cLangs)))
	defer C.vn_free_result(res)

	if res.error != nil {
		return nil, errors.New(C.GoString(res.error))
	}

	items := unsafe.Slice(res.items, int(res.count))
	observations := make([]providers.Observation, 0, len(items))
	for _, item := range items {
		observations = append(observations, providers.Observation{
			Text:       C.GoString(item.text),
			Confidence: float64(item.confidence),
			Box: coords.NormalizedBox{
				X:      float64(item.x),
				Y:      float64(item.y),
				Width:  float64(item.width),
				Height: float64(item.height),
			},
		})
	}
	return observations, nil
}

func fastFlag(level providers.Level) C.int {
	if level == providers.LevelFast {
		return 1
	}
	return 0
}
