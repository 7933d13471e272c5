package detect

import (
	"bytes"

	"github.com/arloliu/patpack/format"
)

type signature struct {
	name     string
	magic    []byte
	offset   int
	category format.Category
	// fold matches ASCII case-insensitively.
	fold bool
}

// signatures is checked in order; the first match wins.
var signatures = []signature{
	{name: "png", magic: []byte("\x89PNG\r\n\x1a\n"), category: format.CategoryBinary},
	{name: "jpeg", magic: []byte{0xFF, 0xD8, 0xFF}, category: format.CategoryBinary},
	{name: "gif", magic: []byte("GIF8"), category: format.CategoryBinary},
	{name: "pdf", magic: []byte("%PDF-"), category: format.CategoryBinary},
	{name: "zip", magic: []byte("PK\x03\x04"), category: format.CategoryBinary},
	{name: "gzip", magic: []byte{0x1F, 0x8B}, category: format.CategoryBinary},
	{name: "zstd", magic: []byte{0x28, 0xB5, 0x2F, 0xFD}, category: format.CategoryBinary},
	{name: "xz", magic: []byte("\xFD7zXZ\x00"), category: format.CategoryBinary},
	{name: "bzip2", magic: []byte("BZh"), category: format.CategoryBinary},
	{name: "7z", magic: []byte("7z\xBC\xAF\x27\x1C"), category: format.CategoryBinary},
	{name: "elf", magic: []byte("\x7FELF"), category: format.CategoryBinary},
	{name: "pe", magic: []byte("MZ"), category: format.CategoryBinary},
	{name: "mach-o", magic: []byte{0xCF, 0xFA, 0xED, 0xFE}, category: format.CategoryBinary},
	{name: "wasm", magic: []byte("\x00asm"), category: format.CategoryBinary},
	{name: "sqlite", magic: []byte("SQLite format 3\x00"), category: format.CategoryBinary},
	{name: "tar", magic: []byte("ustar"), offset: 257, category: format.CategoryBinary},

	{name: "xml", magic: []byte("<?xml"), category: format.CategoryMarkup, fold: true},
	{name: "html", magic: []byte("<!doctype html"), category: format.CategoryMarkup, fold: true},
	{name: "html", magic: []byte("<html"), category: format.CategoryMarkup, fold: true},
	{name: "svg", magic: []byte("<svg"), category: format.CategoryMarkup, fold: true},
	{name: "rtf", magic: []byte("{\\rtf"), category: format.CategoryMarkup},

	{name: "shebang", magic: []byte("#!"), category: format.CategorySourceCode},
	{name: "go", magic: []byte("package "), category: format.CategorySourceCode},
	{name: "c", magic: []byte("#include"), category: format.CategorySourceCode},
	{name: "php", magic: []byte("<?php"), category: format.CategorySourceCode, fold: true},

	{name: "utf8-bom", magic: []byte{0xEF, 0xBB, 0xBF}, category: format.CategoryText},
}

func matchSignature(data []byte) (signature, bool) {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(data) < end {
			continue
		}
		window := data[sig.offset:end]
		if sig.fold {
			if bytes.EqualFold(window, sig.magic) {
				return sig, true
			}

			continue
		}
		if bytes.Equal(window, sig.magic) {
			return sig, true
		}
	}

	return signature{}, false
}
