package grammar

import "errors"

var errNilTree = errors.New("grammar: nil parse tree")
