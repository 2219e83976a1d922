package sitemap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	// StandardNamespace は sitemaps.org プロトコルの名前空間です。
	StandardNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"
	// ImageNamespace は Google の画像サイトマップ拡張の名前空間です。
	ImageNamespace = "http://www.google.com/schemas/sitemap-image/1.1"
	// LegacyImageNamespace は sitemaps.org 配下で書かれた画像拡張の名前空間です。
	LegacyImageNamespace = "http://www.sitemaps.org/schemas/sitemap-image/1.1"
)

// isImageNamespace は space が画像拡張の名前空間 (いずれの表記でも) かどうかを返します。
func isImageNamespace(space string) bool {
	return space == ImageNamespace || space == LegacyImageNamespace
}

// Namespace は <loc> 要素を抽出する際の名前空間の選び方です。
type Namespace string

const (
	// NamespaceAuto はルート <urlset> の名前空間から判定します。
	NamespaceAuto Namespace = "auto"
	// NamespaceStandard は標準名前空間の <loc> だけを抽出します。
	NamespaceStandard Namespace = "standard"
	// NamespaceImage は画像拡張名前空間 (Google 版と sitemaps.org 版) の <loc> だけを抽出します。
	NamespaceImage Namespace = "image"
	// NamespaceAny は名前空間を問わずすべての <loc> を抽出します。
	NamespaceAny Namespace = "any"
)

// ParseNamespace は文字列を Namespace に変換します。空文字は NamespaceAuto です。
func ParseNamespace(s string) (Namespace, error) {
	switch ns := Namespace(strings.ToLower(strings.TrimSpace(s))); ns {
	case "":
		return NamespaceAuto, nil
	case NamespaceAuto, NamespaceStandard, NamespaceImage, NamespaceAny:
		return ns, nil
	default:
		return "", fmt.Errorf("不明な名前空間モードです: %q (auto|standard|image|any)", s)
	}
}

var (
	// ErrEmptyDocument はルート要素が見つからなかったことを示します。
	ErrEmptyDocument = errors.New("ルート要素がありません")
	// ErrSitemapIndex はサイトマップインデックスが渡されたことを示します。インデックスの解決は行いません。
	ErrSitemapIndex = errors.New("サイトマップインデックスには対応していません")
	// ErrUnexpectedRoot はルート要素が <urlset> ではないことを示します。
	ErrUnexpectedRoot = errors.New("ルート要素が urlset ではありません")
	// ErrOutsideRoot はルート要素の外側に要素や文字データがあることを示します。
	ErrOutsideRoot = errors.New("ルート要素の外側に内容があります")
	// ErrNamespaceMismatch は <loc> 要素がすべて名前空間の条件で除外されたことを示します。
	ErrNamespaceMismatch = errors.New("名前空間が一致する loc 要素がありません")
)

// ParseError は XML の解析失敗を表します。
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("サイトマップXMLの解析に失敗しました: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse は XML バイト列から <loc> 要素のテキストを文書順に取り出します。
// 不正な XML の場合は部分的な結果を返さず *ParseError を返します。
func Parse(data []byte, mode Namespace) (Snapshot, error) {
	return ParseReader(bytes.NewReader(data), mode)
}

// ルート要素の外側で許される文字 (空白と BOM)
const outsideRootSpace = " \t\r\n\ufeff"

// ParseReader は Parse の io.Reader 版です。
// ルート要素の外側に要素や空白以外の文字がある文書は整形式ではないものとして扱います。
// 名前空間の条件で <loc> がすべて除外され結果が空になる場合も *ParseError を返します。
func ParseReader(r io.Reader, mode Namespace) (Snapshot, error) {
	if mode == "" {
		mode = NamespaceAuto
	}

	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		urls       []string
		accept     func(space string) bool
		rootSeen   bool
		rootClosed bool
		depth      int
		skipped    int // 名前空間で除外した <loc> の数
		inLoc      bool
		text       strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Snapshot{}, &ParseError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootClosed {
				return Snapshot{}, &ParseError{Err: fmt.Errorf("%w: <%s>", ErrOutsideRoot, t.Name.Local)}
			}
			depth++
			if !rootSeen {
				rootSeen = true
				switch t.Name.Local {
				case "urlset":
				case "sitemapindex":
					return Snapshot{}, &ParseError{Err: ErrSitemapIndex}
				default:
					return Snapshot{}, &ParseError{Err: fmt.Errorf("%w: <%s>", ErrUnexpectedRoot, t.Name.Local)}
				}
				accept = namespaceFilter(mode, t.Name.Space)
				continue
			}
			if t.Name.Local != "loc" || inLoc {
				continue
			}
			if !accept(t.Name.Space) {
				skipped++
				continue
			}
			inLoc = true
			text.Reset()
		case xml.CharData:
			if depth == 0 {
				if len(bytes.Trim(t, outsideRootSpace)) > 0 {
					return Snapshot{}, &ParseError{Err: ErrOutsideRoot}
				}
				continue
			}
			if inLoc {
				text.Write(t)
			}
		case xml.EndElement:
			depth--
			if depth == 0 {
				rootClosed = true
			}
			if inLoc && t.Name.Local == "loc" {
				inLoc = false
				if loc := strings.TrimSpace(text.String()); loc != "" {
					urls = append(urls, loc)
				}
			}
		}
	}

	if !rootSeen {
		return Snapshot{}, &ParseError{Err: ErrEmptyDocument}
	}
	if len(urls) == 0 && skipped > 0 {
		return Snapshot{}, &ParseError{Err: fmt.Errorf("%w (モード: %s, 除外: %d件)", ErrNamespaceMismatch, mode, skipped)}
	}
	return Snapshot{urls: urls}, nil
}

// namespaceFilter はモードとルートの名前空間から、受け入れる名前空間の判定関数を返します。
func namespaceFilter(mode Namespace, rootSpace string) func(string) bool {
	switch mode {
	case NamespaceStandard:
		return func(space string) bool { return space == StandardNamespace }
	case NamespaceImage:
		return isImageNamespace
	case NamespaceAny:
		return func(string) bool { return true }
	}

	// auto
	switch {
	case rootSpace == StandardNamespace:
		return func(space string) bool { return space == StandardNamespace }
	case isImageNamespace(rootSpace):
		return isImageNamespace
	}
	return func(space string) bool {
		return space == "" || space == StandardNamespace || isImageNamespace(space)
	}
}
