package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 向运行中的分析服务发送 SIGHUP，使其重新打开日志文件(配合 logrotate 使用)
func main() {
	pidPath := flag.String("pid", "data/churninsight.pid", "服务写入的pid文件")
	flag.Parse()

	data, err := os.ReadFile(*pidPath)
	if err != nil {
		log.Fatal("Failed to read pid file:", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Fatal("Invalid pid:", err)
	}

	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
}
