package scanner

// Kind classifies a lexed token. The set is deliberately coarse: the
// consumers only need bracket identity for pair matching and a literal
// class for coloring, not a full grammar-ready token stream.
type Kind int

const (
	Illegal Kind = iota

	Ident
	Keyword
	BoolLit
	NullLit
	Num
	BigInt
	Str
	Template // a raw chunk of a template literal, between backticks and ${...}
	Regex
	Comment

	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	DollarBrace // ${ opening a template interpolation
	BackQuote

	Punct // any other operator or punctuation
)

func (k Kind) String() string {
	switch k {
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case BoolLit:
		return "boolean"
	case NullLit:
		return "null"
	case Num:
		return "number"
	case BigInt:
		return "bigint"
	case Str:
		return "string"
	case Template:
		return "template"
	case Regex:
		return "regex"
	case Comment:
		return "comment"
	case LParen:
		return "("
	case RParen:
		return ")"
	case LBracket:
		return "["
	case RBracket:
		return "]"
	case LBrace:
		return "{"
	case RBrace:
		return "}"
	case DollarBrace:
		return "${"
	case BackQuote:
		return "`"
	case Punct:
		return "punctuation"
	default:
		return "illegal"
	}
}

// Token is a classified byte span of the scanned source. End is exclusive.
type Token struct {
	Kind  Kind
	Start int
	End   int
}

// Keywords that are always reserved in JavaScript. Contextual keywords
// (async, of, undefined, ...) are left as identifiers; display layers
// special-case them.
var keywords = map[string]bool{
	"await": true, "break": true, "case": true, "catch": true,
	"class": true, "const": true, "continue": true, "debugger": true,
	"default": true, "delete": true, "do": true, "else": true,
	"enum": true, "export": true, "extends": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "let": true, "new": true,
	"return": true, "static": true, "super": true, "switch": true,
	"this": true, "throw": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "with": true,
	"yield": true,
}

func lookupIdent(ident string) Kind {
	switch ident {
	case "true", "false":
		return BoolLit
	case "null":
		return NullLit
	}
	if keywords[ident] {
		return Keyword
	}
	return Ident
}
