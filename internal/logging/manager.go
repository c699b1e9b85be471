package logging

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Компоненты с собственными файлами логов
const (
	ComponentStorage = "storage"
	ComponentAPI     = "api"
	ComponentCache   = "cache"
)

// LoggerManager хранит по одному логгеру на компонент.
// Если файл логов создать не удалось, компонент получает логгер
// только с консолью, и повторных попыток не делается.
type LoggerManager struct {
	mu       sync.Mutex
	loggers  map[string]*Logger
	degraded map[string]error // компоненты без файла и причина
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:  make(map[string]*Logger),
		degraded: make(map[string]error),
	}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// GetLogger возвращает логгер компонента с файлом, создавая его при первом запросе
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if l, ok := lm.loggers[component]; ok {
		return l, nil
	}
	l, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер %s: %w", component, err)
	}
	lm.loggers[component] = l
	return l, nil
}

// Logger всегда возвращает логгер компонента. При ошибке создания файла
// компонент переводится на консольный логгер, причина пишется в него один раз.
func (lm *LoggerManager) Logger(component string) *Logger {
	l, err := lm.GetLogger(component)
	if err == nil {
		return l
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if l, ok := lm.loggers[component]; ok {
		return l
	}
	l = newConsoleLogger(component)
	lm.loggers[component] = l
	lm.degraded[component] = err
	l.Warn("⚠️ Логи компонента пишутся только в консоль: %v", err)
	return l
}

// Degraded возвращает причину, по которой компонент остался без файла логов
func (lm *LoggerManager) Degraded(component string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.degraded[component]
}

// ApplyLevels задаёт уровни всем уже созданным логгерам
func (lm *LoggerManager) ApplyLevels(console, file LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for _, l := range lm.loggers {
		l.SetLevels(console, file)
	}
}

// SetLogLevel задаёт уровни одному компоненту
func (lm *LoggerManager) SetLogLevel(component string, console, file LogLevel) error {
	lm.mu.Lock()
	l, ok := lm.loggers[component]
	lm.mu.Unlock()
	if !ok {
		return fmt.Errorf("логгер компонента %s не найден", component)
	}
	l.SetLevels(console, file)
	return nil
}

// ListComponents возвращает имена компонентов в алфавитном порядке
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	components := make([]string, 0, len(lm.loggers))
	for c := range lm.loggers {
		components = append(components, c)
	}
	sort.Strings(components)
	return components
}

// CloseAll закрывает файлы всех логгеров и забывает их
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for c, l := range lm.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер %s: %w", c, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	lm.degraded = make(map[string]error)
	return errors.Join(errs...)
}

func GetStorageLogger() *Logger { return GetLoggerManager().Logger(ComponentStorage) }

func GetAPILogger() *Logger { return GetLoggerManager().Logger(ComponentAPI) }

func GetCacheLogger() *Logger { return GetLoggerManager().Logger(ComponentCache) }
