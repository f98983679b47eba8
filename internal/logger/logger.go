// Package logger はコンソール向けのロガーを作成する
package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New は level と出力先を指定してロガーを作成する
//
// 解釈できないレベルは info として扱い、警告を1行出す。
func New(level string, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.WithField("level", level).Warn("不明なログレベルのため info を使用します")
		return l
	}
	l.SetLevel(lvl)

	return l
}
