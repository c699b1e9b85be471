package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// editorKey ключ имени редактора в gin.Context
const editorKey = "editor"

// jwtMiddleware проверяет токен редактора в заголовке Authorization.
// Без Authority пропускает все запросы.
func (s *LevelServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.Authority == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Отсутствует токен авторизации",
			})
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Неверный формат токена",
			})
			return
		}

		claims, err := s.opts.Authority.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Недействительный токен",
			})
			return
		}

		c.Set(editorKey, claims.Editor)
		c.Next()
	}
}

// writesMiddleware отклоняет запись, если она выключена
func (s *LevelServer) writesMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.opts.EnableWrites {
			c.AbortWithStatusJSON(http.StatusForbidden, GenericResponse{
				Success: false,
				Message: "Запись в уровень отключена",
			})
			return
		}
		c.Next()
	}
}
