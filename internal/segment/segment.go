package segment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fachebot/talk-digest-bot/internal/errors"
	"github.com/fachebot/talk-digest-bot/internal/tokens"
)

const (
	filePrefix    = "messages_"
	fileSuffix    = ".txt"
	contentMarker = ", content: "
)

// Segment 一个只追加写入的消息分段文件，同一时刻只由 Batcher 持有
type Segment struct {
	index int
	file  *os.File
}

// FileName 返回分段文件名，如 messages_3.txt
func FileName(index int) string {
	return fmt.Sprintf("%s%d%s", filePrefix, index, fileSuffix)
}

// Path 返回分段文件完整路径
func Path(dir string, index int) string {
	return filepath.Join(dir, FileName(index))
}

// parseIndex 从文件名中解析分段序号，不匹配命名规则时返回 false
func parseIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return index, true
}

// listIndices 列出目录中所有分段序号（升序）
func listIndices(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIO("list segment dir", err)
	}

	indices := make([]int, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if index, ok := parseIndex(entry.Name()); ok {
			indices = append(indices, index)
		}
	}
	sort.Ints(indices)
	return indices, nil
}

// DiscoverActiveIndex 扫描目录，返回最大的分段序号；目录中没有分段时返回 0
func DiscoverActiveIndex(dir string) (int, error) {
	indices, err := listIndices(dir)
	if err != nil {
		return 0, err
	}
	if len(indices) == 0 {
		return 0, nil
	}
	return indices[len(indices)-1], nil
}

// Pending 返回序号小于 below 且仍留在磁盘上的分段（升序），即尚未完成总结的分段
func Pending(dir string, below int) ([]int, error) {
	indices, err := listIndices(dir)
	if err != nil {
		return nil, err
	}

	pending := make([]int, 0, len(indices))
	for _, index := range indices {
		if index < below {
			pending = append(pending, index)
		}
	}
	return pending, nil
}

// Open 以追加模式打开（不存在则创建）指定分段，并通过回放内容重新计算 token 数
func Open(dir string, index int) (*Segment, int, error) {
	path := Path(dir, index)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, 0, errors.NewIO(fmt.Sprintf("open segment %d", index), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = file.Close()
		return nil, 0, errors.NewIO(fmt.Sprintf("replay segment %d", index), err)
	}

	return &Segment{index: index, file: file}, ReplayTokens(string(data)), nil
}

// Rotate 打开序号为 oldIndex+1 的新分段，旧分段文件保持不变，等待 Summarizer 删除
func Rotate(dir string, oldIndex int) (*Segment, int, error) {
	return Open(dir, oldIndex+1)
}

// Read 读取分段的全部内容
func Read(dir string, index int) (string, error) {
	data, err := os.ReadFile(Path(dir, index))
	if err != nil {
		return "", errors.NewIO(fmt.Sprintf("read segment %d", index), err)
	}
	return string(data), nil
}

// Remove 删除分段文件
func Remove(dir string, index int) error {
	if err := os.Remove(Path(dir, index)); err != nil {
		return errors.NewIO(fmt.Sprintf("remove segment %d", index), err)
	}
	return nil
}

func (s *Segment) Index() int {
	return s.index
}

// Append 追加一行，line 不应包含换行符
func (s *Segment) Append(line string) error {
	if _, err := s.file.WriteString(line + "\n"); err != nil {
		return errors.NewIO(fmt.Sprintf("append segment %d", s.index), err)
	}
	return nil
}

func (s *Segment) Close() error {
	if err := s.file.Close(); err != nil {
		return errors.NewIO(fmt.Sprintf("close segment %d", s.index), err)
	}
	return nil
}

// singleLine 将 CR/LF 各替换为一个空格，字符数不变，因此 token 估算结果不变
func singleLine(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, text)
}

// FormatLine 格式化一条消息：timestamp: <时间>, author: <名称>, content: <内容>
func FormatLine(timestamp time.Time, author, content string) string {
	return fmt.Sprintf("timestamp: %s, author: %s%s%s",
		timestamp.UTC().Format(time.RFC3339), singleLine(author), contentMarker, singleLine(content))
}

// LineContent 提取一行中的消息内容，不是消息行时返回 false
func LineContent(line string) (string, bool) {
	_, content, ok := strings.Cut(line, contentMarker)
	return content, ok
}

// ReplayTokens 逐行回放分段内容，累加每条消息内容的 token 数
func ReplayTokens(content string) int {
	total := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if text, ok := LineContent(line); ok {
			total += tokens.Estimate(text)
		}
	}
	return total
}

// IsBlank 判断分段是否不包含任何消息行
func IsBlank(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if _, ok := LineContent(line); ok {
			return false
		}
	}
	return true
}
