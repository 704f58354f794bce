package main

import "github.com/hajimehoshi/ebiten/v2"

// Hack keyboard codes for keys that do not produce a character.
var specialKeys = map[ebiten.Key]uint16{
	ebiten.KeyEnter:      128,
	ebiten.KeyBackspace:  129,
	ebiten.KeyArrowLeft:  130,
	ebiten.KeyArrowUp:    131,
	ebiten.KeyArrowRight: 132,
	ebiten.KeyArrowDown:  133,
	ebiten.KeyHome:       134,
	ebiten.KeyEnd:        135,
	ebiten.KeyPageUp:     136,
	ebiten.KeyPageDown:   137,
	ebiten.KeyInsert:     138,
	ebiten.KeyDelete:     139,
	ebiten.KeyEscape:     140,
	ebiten.KeyF1:         141,
	ebiten.KeyF2:         142,
	ebiten.KeyF3:         143,
	ebiten.KeyF4:         144,
	ebiten.KeyF5:         145,
	ebiten.KeyF6:         146,
	ebiten.KeyF7:         147,
	ebiten.KeyF8:         148,
	ebiten.KeyF9:         149,
	ebiten.KeyF10:        150,
	ebiten.KeyF11:        151,
	ebiten.KeyF12:        152,
}

func isModifier(k ebiten.Key) bool {
	switch k {
	case ebiten.KeyShiftLeft, ebiten.KeyShiftRight,
		ebiten.KeyControlLeft, ebiten.KeyControlRight,
		ebiten.KeyAltLeft, ebiten.KeyAltRight,
		ebiten.KeyMetaLeft, ebiten.KeyMetaRight,
		ebiten.KeyCapsLock:
		return true
	}
	return false
}

// keyCode returns the value for the keyboard register given the characters
// typed this frame and the keys currently down. held is the character
// carried over from earlier frames; the second result replaces it.
func keyCode(held uint16, chars []rune, keys []ebiten.Key) (uint16, uint16) {
	if len(chars) > 0 {
		if r := chars[len(chars)-1]; r < 128 {
			held = uint16(r)
		}
	}

	down := false
	for _, k := range keys {
		if code, ok := specialKeys[k]; ok {
			return code, held
		}
		if !isModifier(k) {
			down = true
		}
	}
	if !down {
		return 0, 0
	}
	return held, held
}
