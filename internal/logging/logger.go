package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает название уровня без учёта регистра
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("неизвестный уровень логирования: %q", s)
	}
}

// Logger логгер компонента: консоль и (опционально) файл
// со своими минимальными уровнями
type Logger struct {
	mu              sync.Mutex
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

// Настройки для логгеров, создаваемых NewLogger
var (
	settingsMu sync.RWMutex

	logDir           = "logs"
	consoleOut       = io.Writer(os.Stdout)
	defaultConsole   = INFO
	defaultFileLevel = TRACE
)

// SetLogDir задаёт директорию для файлов логов. Пустая строка отключает файлы.
func SetLogDir(dir string) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	logDir = dir
}

// SetConsoleOutput задаёт, куда новые логгеры пишут консольный вывод
func SetConsoleOutput(w io.Writer) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	consoleOut = w
}

// SetDefaultLevels задаёт минимальные уровни для новых логгеров
// и для уже созданных логгеров компонентов
func SetDefaultLevels(console, file LogLevel) {
	settingsMu.Lock()
	defaultConsole = console
	defaultFileLevel = file
	settingsMu.Unlock()

	GetLoggerManager().ApplyLevels(console, file)
}

func currentLogDir() string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return logDir
}

// NewLogger создаёт логгер компонента с файлом в директории логов
func NewLogger(component string) (*Logger, error) {
	l := newConsoleLogger(component)

	dir := currentLogDir()
	if dir == "" {
		return l, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}

	// Создаем файл для логов с временной меткой
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}
	l.file = file
	l.fileLogger = log.New(file, "", log.LstdFlags)
	return l, nil
}

// newConsoleLogger логгер только с консолью по текущим настройкам
func newConsoleLogger(component string) *Logger {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return &Logger{
		component:       component,
		consoleLogger:   log.New(consoleOut, "", log.LstdFlags),
		minConsoleLevel: defaultConsole,
		minFileLevel:    defaultFileLevel,
	}
}

// NewWriterLogger создаёт логгер без файла, пишущий в w
func NewWriterLogger(component string, w io.Writer, level LogLevel) *Logger {
	return &Logger{
		component:       component,
		consoleLogger:   log.New(w, "", 0),
		minConsoleLevel: level,
		minFileLevel:    ERROR,
	}
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

// SetLevels задаёт минимальные уровни консоли и файла
func (l *Logger) SetLevels(console, file LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minConsoleLevel = console
	l.minFileLevel = file
}

// Close закрывает файл логов
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// log внутренняя функция для логирования
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minConsoleLevel && (l.fileLogger == nil || level < l.minFileLevel) {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}
	if l.consoleLogger != nil && level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

// Глобальный логгер по умолчанию. До InitDefaultLogger пишет только в консоль.
var (
	defaultMu     sync.RWMutex
	defaultLogger = NewWriterLogger("default", os.Stdout, INFO)
)

// InitDefaultLogger инициализирует глобальный логгер для компонента
func InitDefaultLogger(component string) error {
	logger, err := GetLoggerManager().GetLogger(component)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
	return nil
}

// SetDefaultLogger заменяет глобальный логгер
func SetDefaultLogger(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// CloseDefaultLogger закрывает все логгеры компонентов
func CloseDefaultLogger() {
	_ = GetLoggerManager().CloseAll()
	SetDefaultLogger(NewWriterLogger("default", os.Stdout, INFO))
}

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Trace логирует сообщение уровня TRACE
func Trace(format string, args ...interface{}) { current().Trace(format, args...) }

// Debug логирует сообщение уровня DEBUG
func Debug(format string, args ...interface{}) { current().Debug(format, args...) }

// Info логирует сообщение уровня INFO
func Info(format string, args ...interface{}) { current().Info(format, args...) }

// Warn логирует сообщение уровня WARN
func Warn(format string, args ...interface{}) { current().Warn(format, args...) }

// Error логирует сообщение уровня ERROR
func Error(format string, args ...interface{}) { current().Error(format, args...) }
