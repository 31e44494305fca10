package world

import "errors"

// Ошибки нарушения протокола использования World. Вызывающая сторона
// должна считать их фатальными.
var (
	ErrNotInitialized        = errors.New("world: мир не инициализирован")
	ErrWorldInitialized      = errors.New("world: мир уже инициализирован")
	ErrUnloadWithoutLoad     = errors.New("world: выгрузка чанка без запроса на загрузку")
	ErrBlockTypeInitialized  = errors.New("world: тип блока уже инициализирован")
	ErrBlockTypeRegistered   = errors.New("world: тип блока уже зарегистрирован")
	ErrBlockTypeUnregistered = errors.New("world: тип блока не зарегистрирован")
	ErrBlockTypeNameTaken    = errors.New("world: имя типа блока занято")
	ErrTooManyBlockTypes     = errors.New("world: превышено число типов блоков")
)
